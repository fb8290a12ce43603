package notify

import "context"

type mockNotifier struct {
	sent []Alert
	err  error
}

func (m *mockNotifier) SendAlert(_ context.Context, alert Alert) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, alert)
	return nil
}

var _ Notifier = (*mockNotifier)(nil)
