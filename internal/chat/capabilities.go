package chat

// Capabilities reports which optional speech features the client has. It is
// probed once when a session is created.
type Capabilities interface {
	SpeechInput() bool
	SpeechOutput() bool
}

type Unsupported struct{}

func (Unsupported) SpeechInput() bool  { return false }
func (Unsupported) SpeechOutput() bool { return false }

type Supported struct {
	Input  bool `json:"speech_input"`
	Output bool `json:"speech_output"`
}

func (s Supported) SpeechInput() bool  { return s.Input }
func (s Supported) SpeechOutput() bool { return s.Output }

// Probe returns Unsupported unless the client reported at least one feature.
func Probe(input, output bool) Capabilities {
	if !input && !output {
		return Unsupported{}
	}
	return Supported{Input: input, Output: output}
}
