package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/kaptinlin/jsonrepair"

	"github.com/warriorguo/hyperbuild/expr"
	"github.com/warriorguo/hyperbuild/types"
)

// nodeHandler executes one node. Returning a recoverable error
// (types.IsRecoverable) reports it on the node, anything else aborts the run.
type nodeHandler func(rc *runContext, node *types.Node) error

var handlers = map[types.NodeType]nodeHandler{
	types.StartNode:     runStart,
	types.ScrapeNode:    runScrape,
	types.ExtractNode:   runExtract,
	types.CrawlNode:     runCrawl,
	types.TransformNode: runTransform,
	types.LLMNode:       runLLM,
	types.QnANode:       runQnA,
	types.OutputNode:    runOutput,
	types.EndNode:       runOutput,
	types.ConditionNode: runCondition,
	types.WhileNode:     runWhile,
	types.ApprovalNode:  runApproval,
}

// runHandler reports handled=false for node types without a handler.
func (rc *runContext) runHandler(node *types.Node) (handled bool, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = types.NewFatalError(fmt.Errorf("panic on %s: %v", node.ID, r))
		}
	}()

	handler, exists := handlers[node.Type]
	if !exists {
		return false, nil
	}
	return true, handler(rc, node)
}

func runStart(rc *runContext, node *types.Node) error {
	raw, _ := node.Data.Get("input")
	value := parseStartInput(raw)
	rc.setState(node.ID, value)
	rc.emitData(node, "input", value)
	return nil
}

// parseStartInput decodes a string holding JSON, any other value is kept as is.
func parseStartInput(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func runScrape(rc *runContext, node *types.Node) error {
	url, ok := node.Data.GetNonEmptyString("url")
	if !ok {
		return types.NewNodeErrorf("Scrape node %s: missing url", node.ID)
	}
	p, err := rc.activeProvider()
	if err != nil {
		return errors.Trace(err)
	}
	markdown, err := p.ScrapeMarkdown(rc, url)
	if err != nil {
		return types.NewProviderError(errors.Annotatef(err, "scrape %s", url))
	}
	rc.setState(node.ID, markdown)
	rc.emitData(node, "markdown", markdown)
	return nil
}

func runExtract(rc *runContext, node *types.Node) error {
	url, ok := node.Data.GetNonEmptyString("url")
	if !ok {
		return types.NewNodeErrorf("Extract node %s: missing url", node.ID)
	}
	schema, _ := node.Data.Get("schema")
	p, err := rc.activeProvider()
	if err != nil {
		return errors.Trace(err)
	}
	structured, err := p.ExtractStructured(rc, url, schema)
	if err != nil {
		return types.NewProviderError(errors.Annotatef(err, "extract %s", url))
	}
	rc.setState(node.ID, structured)
	rc.emitData(node, "structured", structured)
	return nil
}

func runCrawl(rc *runContext, node *types.Node) error {
	seeds := crawlSeeds(node.Data)
	if len(seeds) == 0 {
		return types.NewNodeErrorf("Crawl node %s: no seed urls", node.ID)
	}
	maxPages, _ := node.Data.GetInt("maxPages")
	p, err := rc.activeProvider()
	if err != nil {
		return errors.Trace(err)
	}
	markdown, err := p.CrawlMarkdown(rc, seeds, maxPages)
	if err != nil {
		return types.NewProviderError(errors.Annotatef(err, "crawl %s", strings.Join(seeds, ", ")))
	}
	rc.setState(node.ID, markdown)
	rc.emitData(node, "markdown", markdown)
	return nil
}

// crawlSeeds reads seedUrls, which may also be a single url, falling back to url.
func crawlSeeds(data types.Data) []string {
	raw, _ := data.GetStringSlice("seedUrls")
	if len(raw) == 0 {
		if url, ok := data.GetNonEmptyString("url"); ok {
			raw = []string{url}
		}
	}
	seeds := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	return seeds
}

func runTransform(rc *runContext, node *types.Node) error {
	text := collapseWhitespace(stringify(rc.resolveInput(node)))
	rc.setState(node.ID, text)
	rc.emitData(node, "text", text)
	return nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stringify renders a state value as text: strings as is, nil as empty,
// everything else as compact JSON.
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func runLLM(rc *runContext, node *types.Node) error {
	instruction, ok := node.Data.GetNonEmptyString("instruction")
	if !ok {
		return types.NewNodeErrorf("LLM node %s: missing instruction", node.ID)
	}
	llm, err := rc.llm()
	if err != nil {
		return errors.Trace(err)
	}
	input := truncateRunes(stringify(rc.resolveInput(node)), rc.e.opts.LLMInputLimit)
	text, err := llm.Complete(rc, &types.Prompt{System: instruction, User: input})
	if err != nil {
		return types.NewProviderError(errors.Annotatef(err, "LLM node %s", node.ID))
	}
	rc.setState(node.ID, text)
	rc.emitData(node, "text", text)
	return nil
}

const (
	minQnAPairs = 5
	maxQnAPairs = 8

	qnaFallbackPrefix = 200
	qnaPrompt         = `You write question and answer pairs about the content given by the user.
Produce between %d and %d pairs that can be answered from the content alone.
Answer with a JSON object of the form {"qna": [{"question": "...", "answer": "..."}]}.`
)

type QnAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func runQnA(rc *runContext, node *types.Node) error {
	llm, err := rc.llm()
	if err != nil {
		return errors.Trace(err)
	}
	text := truncateRunes(stringify(rc.resolveInput(node)), rc.e.opts.LLMInputLimit)

	pairs, err := generateQnA(rc, llm, text)
	if err != nil {
		rc.log.Debugf("QnA node %s falls back to a single pair: %v", node.ID, err)
		pairs = fallbackQnA(text)
	}
	rc.setState(node.ID, pairs)
	rc.emitData(node, "qna", pairs)
	return nil
}

func generateQnA(rc *runContext, llm types.LLM, text string) ([]QnAPair, error) {
	answer, err := llm.Complete(rc, &types.Prompt{
		System: fmt.Sprintf(qnaPrompt, minQnAPairs, maxQnAPairs),
		User:   text,
		JSON:   true,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return parseQnA(answer)
}

// parseQnA accepts either a bare array of pairs or an object holding one under
// any key.
func parseQnA(answer string) ([]QnAPair, error) {
	repaired, err := jsonrepair.JSONRepair(answer)
	if err != nil {
		return nil, errors.Annotatef(err, "repair QnA answer")
	}

	var doc any
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, errors.Annotatef(err, "decode QnA answer")
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"qna", "pairs", "questions"} {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
		if items == nil {
			for _, field := range v {
				if arr, ok := field.([]any); ok {
					items = arr
					break
				}
			}
		}
	}

	pairs := make([]QnAPair, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q, _ := m["question"].(string)
		a, _ := m["answer"].(string)
		if q = strings.TrimSpace(q); q == "" {
			continue
		}
		pairs = append(pairs, QnAPair{Question: q, Answer: strings.TrimSpace(a)})
		if len(pairs) == maxQnAPairs {
			break
		}
	}
	if len(pairs) == 0 {
		return nil, errors.NotFoundf("question answer pairs in %q", answer)
	}
	return pairs, nil
}

func fallbackQnA(text string) []QnAPair {
	answer := strings.TrimSpace(truncateRunes(collapseWhitespace(text), qnaFallbackPrefix))
	if answer == "" {
		answer = "No content available."
	}
	return []QnAPair{{Question: "What is this content about?", Answer: answer}}
}

func runOutput(rc *runContext, node *types.Node) error {
	output := rc.resolveInput(node)
	if err := rc.e.saveArtifact(rc, rc.runID, OutputArtifact, output); err != nil {
		return types.NewFatalError(errors.Annotatef(err, "save output of %s", node.ID))
	}
	rc.setState(node.ID, output)
	rc.emitData(node, "output", output)
	rc.emit(&types.Event{Kind: types.EventSaved, Node: node.ID, RunID: rc.runID})
	return nil
}

func runCondition(rc *runContext, node *types.Node) error {
	source, _ := node.Data.GetString("condition")
	result := expr.Evaluate(source, rc.resolveInput(node))
	rc.setState(node.ID, result)
	rc.emitData(node, "result", result)
	return nil
}

// runWhile counts how many times in a row the condition holds, stopping at
// MaxWhileIterations. The input is looked up again on every iteration.
func runWhile(rc *runContext, node *types.Node) error {
	source, _ := node.Data.GetString("condition")
	compiled, err := expr.Compile(source)
	if err != nil {
		rc.log.Debugf("While node %s: %v", node.ID, err)
	}

	iterations := 0
	for compiled != nil && iterations < rc.e.opts.MaxWhileIterations {
		ok, err := compiled.Eval(rc.resolveInput(node))
		if err != nil {
			rc.log.Debugf("While node %s: evaluate %q: %v", node.ID, compiled.String(), err)
			break
		}
		if !ok {
			break
		}
		iterations++
	}
	rc.setState(node.ID, iterations)
	rc.emitData(node, "iterations", iterations)
	return nil
}

func runApproval(rc *runContext, node *types.Node) error {
	rc.emit(&types.Event{Kind: types.EventAwait, Node: node.ID, Message: "Auto-approved"})
	rc.setState(node.ID, "approved")
	return nil
}
