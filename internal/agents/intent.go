package agents

import (
	"fmt"
	"strconv"
	"strings"
)

// IntentKind discriminates what an agent is currently pursuing.
type IntentKind uint8

const (
	IntentNone IntentKind = iota
	IntentRest
	IntentEat
	IntentBuild
	IntentMine
	IntentManual
	IntentWander
)

// Intent is the reason behind an agent's current state. JobID is set for
// Build and Mine, Target for Manual.
type Intent struct {
	Kind   IntentKind
	JobID  string
	Target int
}

// Tag strings of the intent namespace.
const (
	tagRest   = "sys_sleep"
	tagEat    = "sys_eat"
	tagWander = "wander"
	tagManual = "manual_"
)

// String renders the intent tag, e.g. "sys_sleep", "build_<uuid>" or
// "manual_42". The empty string means no intent.
func (in Intent) String() string {
	switch in.Kind {
	case IntentRest:
		return tagRest
	case IntentEat:
		return tagEat
	case IntentBuild, IntentMine:
		return in.JobID
	case IntentManual:
		return tagManual + strconv.Itoa(in.Target)
	case IntentWander:
		return tagWander
	default:
		return ""
	}
}

// ParseIntent reverses Intent.String.
func ParseIntent(tag string) (Intent, error) {
	switch {
	case tag == "":
		return Intent{}, nil
	case tag == tagRest:
		return Intent{Kind: IntentRest}, nil
	case tag == tagEat:
		return Intent{Kind: IntentEat}, nil
	case tag == tagWander:
		return Intent{Kind: IntentWander}, nil
	case strings.HasPrefix(tag, tagManual):
		n, err := strconv.Atoi(tag[len(tagManual):])
		if err != nil {
			return Intent{}, fmt.Errorf("parse manual intent %q: %w", tag, err)
		}
		return Intent{Kind: IntentManual, Target: n}, nil
	case strings.HasPrefix(tag, "build_"):
		return Intent{Kind: IntentBuild, JobID: tag}, nil
	case strings.HasPrefix(tag, "mine_"):
		return Intent{Kind: IntentMine, JobID: tag}, nil
	}
	return Intent{}, fmt.Errorf("unknown intent %q", tag)
}

// HasJob reports whether the intent references a job.
func (in Intent) HasJob() bool {
	return (in.Kind == IntentBuild || in.Kind == IntentMine) && in.JobID != ""
}

// MarshalText encodes the intent as its tag.
func (in Intent) MarshalText() ([]byte, error) {
	return []byte(in.String()), nil
}

// UnmarshalText decodes an intent tag.
func (in *Intent) UnmarshalText(b []byte) error {
	v, err := ParseIntent(string(b))
	if err != nil {
		return err
	}
	*in = v
	return nil
}
