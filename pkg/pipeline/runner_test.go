package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/incremental-systems/dialogio/pkg/frame"
)

// fakeModule records lifecycle calls and hands out canned messages.
type fakeModule struct {
	mu       sync.Mutex
	setups   int
	prepares int
	shutdown int
	received []UpdateMessage

	setupErr error
	emit     []UpdateMessage // consumed one per ProcessUpdate(nil) call
}

func (m *fakeModule) Setup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setups++
	return m.setupErr
}

func (m *fakeModule) PrepareRun() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepares++
	return nil
}

func (m *fakeModule) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown++
	return nil
}

func (m *fakeModule) ProcessUpdate(msg UpdateMessage) (UpdateMessage, error) {
	m.mu.Lock()
	if msg != nil {
		m.received = append(m.received, msg)
		m.mu.Unlock()
		return nil, nil
	}
	if len(m.emit) == 0 {
		m.mu.Unlock()
		// Nothing left to produce; yield so the pump loop does not spin hot.
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	out := m.emit[0]
	m.emit = m.emit[1:]
	m.mu.Unlock()
	return out, nil
}

func (m *fakeModule) receivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// fakeProducer drives the Drain side from a channel the test controls.
type fakeProducer struct {
	fakeModule
	out chan UpdateMessage
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{out: make(chan UpdateMessage, 8)}
}

func (p *fakeProducer) Output() <-chan UpdateMessage { return p.out }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testMessage() UpdateMessage {
	return MessageFromFrame(frame.Silence(10, 16000, 2), Add)
}

func TestRunnerPumpDeliversToSinks(t *testing.T) {
	source := &fakeModule{emit: []UpdateMessage{testMessage(), testMessage()}}
	sinkA := &fakeModule{}
	sinkB := &fakeModule{}

	r := NewRunner(nil)
	r.Pump(source, sinkA, sinkB)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	waitFor(t, func() bool {
		return sinkA.receivedCount() == 2 && sinkB.receivedCount() == 2
	})
	r.Stop()
}

func TestRunnerDrainDeliversProducerOutput(t *testing.T) {
	source := newFakeProducer()
	sink := &fakeModule{}

	r := NewRunner(nil)
	r.Drain(source, sink)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	source.out <- testMessage()
	source.out <- testMessage()
	source.out <- testMessage()
	waitFor(t, func() bool { return sink.receivedCount() == 3 })
	r.Stop()
}

func TestRunnerLifecycleOrder(t *testing.T) {
	source := &fakeModule{}
	sink := &fakeModule{}

	r := NewRunner(nil)
	r.Pump(source, sink)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	r.Stop()
	r.Stop() // idempotent

	for name, m := range map[string]*fakeModule{"source": source, "sink": sink} {
		if m.setups != 1 || m.prepares != 1 || m.shutdown != 1 {
			t.Errorf("%s lifecycle counts = %d/%d/%d, want 1/1/1", name, m.setups, m.prepares, m.shutdown)
		}
	}
}

func TestRunnerRegistersModuleOnce(t *testing.T) {
	source := &fakeModule{}
	sink := &fakeModule{}

	r := NewRunner(nil)
	r.Pump(source, sink)
	r.Pump(source, sink) // same edge twice must not double lifecycle calls
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	r.Stop()

	if source.setups != 1 || sink.setups != 1 {
		t.Errorf("setup counts = %d/%d, want 1/1", source.setups, sink.setups)
	}
}

func TestRunnerSetupFailureRollsBack(t *testing.T) {
	first := &fakeModule{}
	broken := &fakeModule{setupErr: errors.New("no device")}

	r := NewRunner(nil)
	r.Pump(first, broken)
	if err := r.Run(); err == nil {
		t.Fatal("run succeeded despite a failing setup")
	}

	if first.setups != 1 || first.shutdown != 1 {
		t.Errorf("first module setup/shutdown = %d/%d, want 1/1", first.setups, first.shutdown)
	}
	if broken.prepares != 0 {
		t.Errorf("broken module prepared %d times, want 0", broken.prepares)
	}
}

func TestRunnerDrainStopsOnClosedOutput(t *testing.T) {
	source := newFakeProducer()
	sink := &fakeModule{}

	r := NewRunner(nil)
	r.Drain(source, sink)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	source.out <- testMessage()
	waitFor(t, func() bool { return sink.receivedCount() == 1 })
	close(source.out)

	// Stop must not hang on a drain loop whose channel is gone.
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after producer output closed")
	}
}
