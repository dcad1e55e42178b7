package types

// RCode is the status code carried by every envelope.
type RCode int

const (
	RCodeOK RCode = iota
	RCodeFail
	RCodeError
)

// Response is the {code, msg, data} envelope used on every outbound event.
type Response struct {
	Code RCode   `json:"code"`
	Msg  *string `json:"msg"`
	Data any     `json:"data"`
}

func OK(msg string, data any) Response {
	r := Response{Code: RCodeOK, Data: data}
	if msg != "" {
		r.Msg = &msg
	}
	return r
}

func Error(msg string) Response {
	return Response{Code: RCodeError, Msg: &msg}
}

// Event is a named envelope queued for delivery to a connection.
type Event struct {
	Name    string
	Payload Response
}

func (e Event) Frame() Frame {
	return Frame{Event: e.Name, Data: e.Payload}
}
