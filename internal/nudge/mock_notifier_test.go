package nudge

import "context"

type mockNotifier struct {
	called bool
	msg    Message
	err    error
}

func (m *mockNotifier) SendNudge(ctx context.Context, msg Message) error {
	m.called = true
	m.msg = msg
	return m.err
}
