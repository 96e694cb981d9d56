// Package protocol defines the host<->child wire types exchanged over the
// JSONL control channel, and the line-oriented reader/writer that frame them.
package protocol

import "encoding/json"

// Mode selects what a Run input asks the child to do with the filtered set
// of tests: enumerate them without executing, or execute them.
type Mode string

const (
	ModeList Mode = "List"
	ModeRun  Mode = "Run"
)

// TargetFile is a target file as presented to the child: an absolute path
// paired with the forward-slash-normalized relative name shown to users and
// round-tripped by the scripted side as a stable identifier.
type TargetFile struct {
	AbsPath string `json:"abs_path"`
	RelName string `json:"rel_name"`
}

// Initialize is the first Input every child receives.
type Initialize struct {
	RootDir     string       `json:"root_dir"`
	TargetFiles []TargetFile `json:"target_files"`
	TermWidth   int          `json:"term_width"`
}

// Execute asks the child to load and run a script — used for the profile's
// init script, before any Run is sent.
type Execute struct {
	Path string `json:"path"`
}

// Run asks the child to enumerate (ModeList) or execute (ModeRun) the tests
// matching IDFilter. A nil IDFilter marshals to a JSON null and means "all
// tests"; a non-nil, possibly empty, IDFilter marshals to a JSON array and
// means exactly that set, including none. The two must stay distinguishable
// on the wire, so this field never carries "omitempty" — the id_filter key
// is always present.
type Run struct {
	IDFilter []string `json:"id_filter"`
	Mode     Mode     `json:"mode"`
}

// Finish signals that no further Input will be sent; the child should
// acknowledge with AllInputsRead once it has consumed the line.
type Finish struct{}

// Input is the host->child tagged union. Exactly one of the typed fields is
// non-nil; use the New* constructors rather than setting fields by hand.
type Input struct {
	Initialize *Initialize
	Execute    *Execute
	Run        *Run
	Finish     *Finish
}

func NewInitialize(rootDir string, targetFiles []TargetFile, termWidth int) Input {
	return Input{Initialize: &Initialize{RootDir: rootDir, TargetFiles: targetFiles, TermWidth: termWidth}}
}

func NewExecute(path string) Input {
	return Input{Execute: &Execute{Path: path}}
}

func NewRun(mode Mode, idFilter []string) Input {
	return Input{Run: &Run{Mode: mode, IDFilter: idFilter}}
}

func NewFinish() Input {
	return Input{Finish: &Finish{}}
}

// MarshalJSON encodes Input using the {"t": tag, "c": payload} convention.
func (i Input) MarshalJSON() ([]byte, error) {
	switch {
	case i.Initialize != nil:
		return marshalTagged("Initialize", i.Initialize)
	case i.Execute != nil:
		return marshalTagged("Execute", i.Execute)
	case i.Run != nil:
		return marshalTagged("Run", i.Run)
	case i.Finish != nil:
		return marshalTagged("Finish", i.Finish)
	default:
		return nil, errEmptyUnion("Input")
	}
}

// UnmarshalJSON decodes an Input previously encoded by MarshalJSON.
func (i *Input) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Tag {
	case "Initialize":
		var v Initialize
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		i.Initialize = &v
	case "Execute":
		var v Execute
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		i.Execute = &v
	case "Run":
		var v Run
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		i.Run = &v
	case "Finish":
		i.Finish = &Finish{}
	default:
		return errUnknownTag(env.Tag)
	}
	return nil
}

// TestErrorInfo carries the two sides of a failed equality assertion, for
// diff rendering.
type TestErrorInfo struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// TestError describes a failed test.
type TestError struct {
	Message   string         `json:"message"`
	Traceback string         `json:"traceback"`
	Info      *TestErrorInfo `json:"info,omitempty"`
}

// TestInfo is a discovery record emitted during a List run.
type TestInfo struct {
	ID    string   `json:"id"`
	Title []string `json:"title"`
}

// TestStarted announces that the child is about to run the named test.
type TestStarted struct {
	Title []string `json:"title"`
}

// TestFinished reports a completed test; Error is nil on success.
type TestFinished struct {
	Title []string   `json:"title"`
	Error *TestError `json:"error,omitempty"`
}

// AllInputsRead signals the child has consumed every Input up to and
// including Finish (or, after a Run{mode: List}, that listing's end).
type AllInputsRead struct{}

// Log carries an opaque diagnostic line from the child.
type Log struct {
	Text string `json:"text"`
}

// Output is the child->host tagged union.
type Output struct {
	TestInfo      *TestInfo
	TestStarted   *TestStarted
	TestFinished  *TestFinished
	AllInputsRead *AllInputsRead
	Log           *Log
}

func (o Output) MarshalJSON() ([]byte, error) {
	switch {
	case o.TestInfo != nil:
		return marshalTagged("TestInfo", o.TestInfo)
	case o.TestStarted != nil:
		return marshalTagged("TestStarted", o.TestStarted)
	case o.TestFinished != nil:
		return marshalTagged("TestFinished", o.TestFinished)
	case o.AllInputsRead != nil:
		return marshalTagged("AllInputsRead", o.AllInputsRead)
	case o.Log != nil:
		return marshalTagged("Log", o.Log)
	default:
		return nil, errEmptyUnion("Output")
	}
}

func (o *Output) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Tag {
	case "TestInfo":
		var v TestInfo
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		o.TestInfo = &v
	case "TestStarted":
		var v TestStarted
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		o.TestStarted = &v
	case "TestFinished":
		var v TestFinished
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		o.TestFinished = &v
	case "AllInputsRead":
		o.AllInputsRead = &AllInputsRead{}
	case "Log":
		var v Log
		if err := unmarshalPayload(env.Content, &v); err != nil {
			return err
		}
		o.Log = &v
	default:
		return errUnknownTag(env.Tag)
	}
	return nil
}

// envelope is the wire shape every tagged union shares: a "t" discriminator
// and a "c" payload, deferred as raw JSON until the tag is known.
type envelope struct {
	Tag     string          `json:"t"`
	Content json.RawMessage `json:"c"`
}

func marshalTagged(tag string, payload any) ([]byte, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Tag: tag, Content: content})
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
