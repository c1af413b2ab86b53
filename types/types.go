package types

import (
	"strings"

	"github.com/juju/errors"
)

type StatusType int32

const (
	None     StatusType = 0
	Pending  StatusType = 1
	Running  StatusType = 2
	Failed   StatusType = 5
	Fatal    StatusType = 9
	Finished StatusType = 10
)

var statusNames = map[StatusType]string{
	None:     "none",
	Pending:  "pending",
	Running:  "running",
	Failed:   "failed",
	Fatal:    "fatal",
	Finished: "finished",
}

func (s StatusType) String() string {
	if name, exists := statusNames[s]; exists {
		return name
	}
	return "unknown"
}

func (s StatusType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StatusType) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return errors.NotValidf("status %q", name)
}

// NodeSuccess is the only per-node status recorded in a run; nodes that have not
// run, or that reported an error, have no entry.
const NodeSuccess = "success"
