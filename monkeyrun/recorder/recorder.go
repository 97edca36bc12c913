package recorder

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spance/monkeyrun/monkeyrun/definitions"
	"github.com/spance/monkeyrun/utils"
)

// Event is one recorded interaction, written as a JSON line.
type Event struct {
	Session   string            `json:"session"`
	Serial    string            `json:"serial"`
	Seq       int               `json:"seq"`
	Action    string            `json:"action"`
	Args      map[string]string `json:"args,omitempty"`
	Error     string            `json:"error,omitempty"`
	ElapsedMs int64             `json:"elapsed_ms"`
	Time      time.Time         `json:"time"`
}

// Recorder records device interactions. A nil writer only logs them.
type Recorder struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// Start opens a recording session on device and returns a device that records every call
// made through it.
func (r *Recorder) Start(ctx context.Context, serial string, device definitions.Device) (definitions.Device, error) {
	session := &Session{
		ID:       uuid.New().String(),
		Serial:   serial,
		device:   device,
		recorder: r,
	}
	if err := session.emit("start", nil, nil, 0); err != nil {
		return nil, err
	}
	log.Debug().Str("session", session.ID).Str("serial", serial).Msg("[Recorder] session started")
	return session, nil
}

func (r *Recorder) write(ev Event) error {
	log.Debug().Str("event", utils.JsonString(ev)).Msg("[Recorder] event")
	if r.w == nil {
		return nil
	}

	line, err := utils.JsonLine(ev)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.w.Write(line)
	return err
}

// Session is a recording device handle.
type Session struct {
	ID     string
	Serial string

	device   definitions.Device
	recorder *Recorder
	seq      int
}

func (s *Session) emit(action string, args map[string]string, callErr error, elapsed time.Duration) error {
	s.seq++
	ev := Event{
		Session:   s.ID,
		Serial:    s.Serial,
		Seq:       s.seq,
		Action:    action,
		Args:      args,
		ElapsedMs: elapsed.Milliseconds(),
		Time:      time.Now(),
	}
	if callErr != nil {
		ev.Error = callErr.Error()
	}
	return s.recorder.write(ev)
}

// record runs fn and records it. A failure to record never hides the call's own error.
func (s *Session) record(action string, args map[string]string, fn func() error) error {
	start := time.Now()
	err := fn()
	if recErr := s.emit(action, args, err, time.Since(start)); recErr != nil {
		log.Warn().Err(recErr).Str("action", action).Msg("[Recorder] failed to write event")
	}
	return err
}

func (s *Session) InstallPackage(ctx context.Context, localPath string) error {
	return s.record("install_package", map[string]string{"path": localPath}, func() error {
		return s.device.InstallPackage(ctx, localPath)
	})
}

func (s *Session) StartActivity(ctx context.Context, component string) error {
	return s.record("start_activity", map[string]string{"component": component}, func() error {
		return s.device.StartActivity(ctx, component)
	})
}

func (s *Session) Press(ctx context.Context, keyCode string, action definitions.KeyAction) error {
	return s.record("press", map[string]string{"key": keyCode, "action": string(action)}, func() error {
		return s.device.Press(ctx, keyCode, action)
	})
}

func (s *Session) TakeSnapshot(ctx context.Context) (definitions.Image, error) {
	var img definitions.Image
	err := s.record("take_snapshot", nil, func() error {
		var err error
		img, err = s.device.TakeSnapshot(ctx)
		return err
	})
	return img, err
}
