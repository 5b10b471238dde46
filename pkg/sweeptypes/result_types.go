package sweeptypes

import (
	"bytes"
	"encoding/json"
	"time"
)

// Completion is the normalized reply extracted from a provider response.
// Text is nil when the provider reply held no reachable text.
type Completion struct {
	Text         *string
	FinishReason string
	Logprobs     json.RawMessage
}

// CallFailure describes why a single provider call failed.
type CallFailure struct {
	Message string          `json:"message"`
	Status  int             `json:"status,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// CallResult is the outcome of one provider invocation. A result carries either
// a completion (Text, FinishReason, Logprobs) or an Error, never both.
type CallResult struct {
	Iteration    int
	Text         string
	FinishReason string
	Logprobs     json.RawMessage
	Error        *CallFailure
}

// Failed reports whether the call was captured as an error.
func (r CallResult) Failed() bool {
	return r.Error != nil
}

type successJSON struct {
	Iteration    int             `json:"iteration"`
	Text         string          `json:"text"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

type failureJSON struct {
	Iteration int          `json:"iteration"`
	Error     *CallFailure `json:"error"`
}

// MarshalJSON emits the success shape or the failure shape, never a mix.
func (r CallResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(failureJSON{Iteration: r.Iteration, Error: r.Error})
	}
	logprobs := r.Logprobs
	if bytes.Equal(bytes.TrimSpace(logprobs), []byte("null")) {
		logprobs = nil
	}
	return json.Marshal(successJSON{
		Iteration:    r.Iteration,
		Text:         r.Text,
		Logprobs:     logprobs,
		FinishReason: r.FinishReason,
	})
}

// UnmarshalJSON reads either shape back.
func (r *CallResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Iteration    int             `json:"iteration"`
		Text         string          `json:"text"`
		Logprobs     json.RawMessage `json:"logprobs"`
		FinishReason string          `json:"finish_reason"`
		Error        json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = CallResult{Iteration: aux.Iteration}
	if len(aux.Error) > 0 && !bytes.Equal(aux.Error, []byte("null")) {
		var failure CallFailure
		var msg string
		switch {
		case json.Unmarshal(aux.Error, &msg) == nil:
			// older result files stored a bare message
			failure = CallFailure{Message: msg}
		case json.Unmarshal(aux.Error, &failure) != nil || failure.Message == "":
			failure = CallFailure{Message: string(aux.Error), Body: aux.Error}
		}
		r.Error = &failure
		return nil
	}

	r.Text = aux.Text
	r.FinishReason = aux.FinishReason
	if len(aux.Logprobs) > 0 && !bytes.Equal(aux.Logprobs, []byte("null")) {
		r.Logprobs = aux.Logprobs
	}
	return nil
}

// TemperatureResult groups the N iterations run at one temperature, in repetition order.
type TemperatureResult struct {
	Temperature float64      `json:"temperature"`
	Iterations  []CallResult `json:"iterations"`
}

// ExperimentResult is the full output tree of one sweep. Experiments are in
// generation order and must never be re-sorted.
type ExperimentResult struct {
	Config      ExperimentConfig    `json:"config"`
	Timestamp   time.Time           `json:"timestamp"`
	Experiments []TemperatureResult `json:"experiments"`
}

// Responses flattens every iteration into a text list in generation order.
// Failed iterations contribute "Error: <message>" so positions stay aligned.
func (r *ExperimentResult) Responses() []string {
	out := make([]string, 0)
	for _, temp := range r.Experiments {
		for _, it := range temp.Iterations {
			if it.Failed() {
				out = append(out, "Error: "+it.Error.Message)
				continue
			}
			out = append(out, it.Text)
		}
	}
	return out
}

// CallCount returns the total number of iterations and how many failed.
func (r *ExperimentResult) CallCount() (total, failed int) {
	for _, temp := range r.Experiments {
		for _, it := range temp.Iterations {
			total++
			if it.Failed() {
				failed++
			}
		}
	}
	return total, failed
}
