package types

import "time"

// ResponseMetadata carries optional bookkeeping attached to a response.
type ResponseMetadata struct {
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	AgentID        string        `json:"agent_id,omitempty"`
	Capability     string        `json:"capability,omitempty"`
	Timestamp      time.Time     `json:"timestamp,omitempty"`
}

// Response is the uniform result envelope returned for routed messages.
type Response struct {
	Success  bool              `json:"success"`
	Data     any               `json:"data,omitempty"`
	Error    *Error            `json:"error,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
}

// OK builds a successful response carrying data.
func OK(data any) *Response {
	return &Response{
		Success:  true,
		Data:     data,
		Metadata: &ResponseMetadata{Timestamp: time.Now()},
	}
}

// Fail builds a failure response from an error. Plain errors are wrapped as
// internal errors so the envelope always carries a structured code.
func Fail(err error) *Response {
	structured, ok := err.(*Error)
	if !ok {
		structured = NewError(ErrInternal, "unexpected error").WithCause(err)
	}
	return &Response{
		Success:  false,
		Error:    structured,
		Metadata: &ResponseMetadata{Timestamp: time.Now()},
	}
}

// WithAgent tags the response metadata with the handling agent.
func (r *Response) WithAgent(agentID string) *Response {
	if r.Metadata == nil {
		r.Metadata = &ResponseMetadata{Timestamp: time.Now()}
	}
	r.Metadata.AgentID = agentID
	return r
}

// WithCapability tags the response metadata with the capability involved.
func (r *Response) WithCapability(capability string) *Response {
	if r.Metadata == nil {
		r.Metadata = &ResponseMetadata{Timestamp: time.Now()}
	}
	r.Metadata.Capability = capability
	return r
}

// WithProcessingTime records how long handling took.
func (r *Response) WithProcessingTime(d time.Duration) *Response {
	if r.Metadata == nil {
		r.Metadata = &ResponseMetadata{Timestamp: time.Now()}
	}
	r.Metadata.ProcessingTime = d
	return r
}
