package beast

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"chat-workspace/internal/workspace"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	planInstructions = "You are planning a software project. Reply with a short numbered plan. " +
		"Name every file you will create. Do not write any code yet."
	startMessage    = "The plan is approved. Start implementing it."
	continueMessage = "Continue with the next part of the plan. Output complete files. " +
		"If everything is complete, reply with " + chat.SentinelDone + "."
	stoppedMessage = "Beast mode stopped."
	doneMessage    = "Beast mode finished: all work is done."
	pausedMessage  = "Beast mode is paused and waiting for you to resume."
)

var errStopped = errors.New("run stopped")

// ErrIterationLimit stops a run that never reports completion
var ErrIterationLimit = errors.New("iteration limit reached")

// Run is one beast-mode task in one session
type Run struct {
	m         *Manager
	sessionID string
	task      string

	ctx    context.Context
	cancel context.CancelFunc

	approve chan struct{}
	resume  chan struct{}
	done    chan struct{}

	// names for anonymous blocks stay unique across the whole run
	parser *workspace.Parser

	status  Status
	history []llm.Message
}

func newRun(m *Manager, sessionID, task string) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Run{
		m:         m,
		sessionID: sessionID,
		task:      task,
		ctx:       ctx,
		cancel:    cancel,
		approve:   make(chan struct{}, 1),
		resume:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		parser:    workspace.NewParser(),
		status: Status{
			SessionID: sessionID,
			Task:      task,
			State:     StateIdle,
			StartedAt: now,
			UpdatedAt: now,
		},
	}
}

// Status returns a copy of the run's status
func (r *Run) Status() Status {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.statusLocked()
}

func (r *Run) statusLocked() Status {
	st := r.status
	st.Files = append([]string(nil), r.status.Files...)
	return st
}

func (r *Run) update(fn func(st *Status)) (Status, bool) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.status.State.Terminal() {
		return r.statusLocked(), false
	}
	fn(&r.status)
	r.status.UpdatedAt = time.Now()
	return r.statusLocked(), true
}

func (r *Run) setState(state State) bool {
	st, ok := r.update(func(st *Status) { st.State = state })
	if ok {
		r.publish(EventState, st, "")
	}
	return ok
}

func (r *Run) publish(t EventType, st Status, msg string) {
	r.m.events.publish(Event{
		Type:      t,
		SessionID: r.sessionID,
		Status:    st,
		Message:   msg,
		Time:      time.Now(),
	})
}

func (r *Run) signal(expected State, ch chan struct{}, notReady error) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.status.State != expected {
		return notReady
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return nil
}

func (r *Run) stop() {
	st, ok := r.update(func(st *Status) { st.State = StateStopped })
	r.cancel()
	if !ok {
		return
	}
	logger.Log.WithField("session_id", r.sessionID).Info("Beast run stopped")
	r.note(stoppedMessage)
	r.publish(EventState, st, "")
}

// fail ends the run on err and records it in the chat log
func (r *Run) fail(err error) {
	if errors.Is(err, errStopped) {
		return
	}
	st, ok := r.update(func(st *Status) {
		st.State = StateStopped
		st.LastError = err.Error()
	})
	if !ok {
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"session_id":  r.sessionID,
		"error_class": llm.ErrorClass(err),
		"attempts":    st.Attempts,
	}).WithError(err).Error("Beast run failed")

	r.m.store.UpdateAnalytics(func(a *db.Analytics) { a.Errors++ })
	r.note(llm.UserFacingMessage(err))
	r.publish(EventError, st, err.Error())
}

// terminated reports whether the run was stopped or has ended
func (r *Run) terminated() bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.status.State.Terminal()
}

// note records a status line in the chat log
func (r *Run) note(content string) {
	if _, err := r.m.store.AppendNotice(r.sessionID, content); err != nil {
		logger.Log.WithError(err).WithField("session_id", r.sessionID).Warn("Failed to record beast message")
	}
}

// say records a model reply
func (r *Run) say(content string) {
	if _, err := r.m.store.Append(r.sessionID, db.RoleAssistant, content); err != nil {
		logger.Log.WithError(err).WithField("session_id", r.sessionID).Warn("Failed to record beast message")
	}
}

func (r *Run) loop() {
	defer close(r.done)
	defer r.cancel()

	if !r.setState(StatePlanning) {
		return
	}
	plan, err := r.call(chat.ModeChat, planInstructions, nil, "Task: "+r.task)
	if err != nil {
		r.fail(err)
		return
	}
	st, ok := r.update(func(st *Status) {
		st.Plan = plan
		st.State = StateAwaitingApproval
	})
	if !ok {
		return
	}
	r.note("Plan:\n\n" + plan)
	r.publish(EventPlan, st, plan)

	if !r.awaitApproval() {
		return
	}

	instructions := fmt.Sprintf("Task: %s\n\nApproved plan:\n%s", r.task, plan)
	message := startMessage
	for iteration := 1; ; iteration++ {
		if iteration > r.m.cfg.MaxIterations {
			r.fail(fmt.Errorf("%w after %d iterations", ErrIterationLimit, r.m.cfg.MaxIterations))
			return
		}
		if _, ok := r.update(func(st *Status) { st.Iteration = iteration }); !ok {
			return
		}

		reply, err := r.call(chat.ModeBeast, instructions, r.history, message)
		if err != nil {
			r.fail(err)
			return
		}
		r.history = append(r.history,
			llm.Message{Role: db.RoleUser, Content: message},
			llm.Message{Role: db.RoleAssistant, Content: reply},
		)
		message = continueMessage

		// Stop may land between the reply arriving and it being applied
		if r.terminated() {
			r.discard()
			return
		}
		r.say(reply)
		if r.terminated() {
			r.discard()
			return
		}
		r.applyFiles(reply)

		lower := strings.ToLower(reply)
		if strings.Contains(lower, strings.ToLower(chat.SentinelDone)) {
			st, ok := r.update(func(st *Status) { st.State = StateFinished })
			if ok {
				logger.Log.WithFields(logrus.Fields{
					"session_id": r.sessionID,
					"iterations": iteration,
				}).Info("Beast run finished")
				r.note(doneMessage)
				r.publish(EventState, st, "")
			}
			return
		}
		if strings.Contains(lower, strings.ToLower(chat.SentinelPause)) {
			if !r.setState(StatePaused) {
				return
			}
			r.note(pausedMessage)
			select {
			case <-r.resume:
			case <-r.ctx.Done():
				return
			}
			if !r.setState(StateExecuting) {
				return
			}
		}
	}
}

func (r *Run) awaitApproval() bool {
	var auto <-chan time.Time
	if r.m.store.Settings().AutoApprovePlan {
		timer := time.NewTimer(r.m.cfg.AutoApproveDelay)
		defer timer.Stop()
		auto = timer.C
	}

	select {
	case <-r.approve:
	case <-auto:
		logger.Log.WithField("session_id", r.sessionID).Info("Plan auto-approved")
	case <-r.ctx.Done():
		return false
	}
	return r.setState(StateExecuting)
}

// call sends one request, retrying transport and empty-response failures
// with exponential backoff. A response that arrives after Stop is discarded.
func (r *Run) call(mode chat.Mode, instructions string, history []llm.Message, message string) (string, error) {
	for {
		if r.ctx.Err() != nil {
			return "", errStopped
		}

		files, _ := r.m.store.Files(r.sessionID)
		if _, ok := r.update(func(st *Status) { st.Attempts++ }); !ok {
			return "", errStopped
		}

		reply, err := r.m.completer.Send(r.ctx, chat.SendRequest{
			SessionID:    r.sessionID,
			Message:      message,
			Mode:         mode,
			Settings:     r.m.store.Settings(),
			Memory:       r.m.store.Memory(),
			Files:        files,
			History:      history,
			Instructions: instructions,
		})
		if r.ctx.Err() != nil {
			if err == nil {
				r.discard()
			}
			return "", errStopped
		}
		if err == nil {
			r.update(func(st *Status) { st.Failures = 0 })
			if mode == chat.ModeBeast {
				r.m.store.UpdateAnalytics(func(a *db.Analytics) { a.ResponsesReceived++ })
			}
			return reply, nil
		}
		if !llm.IsRetryable(err) {
			return "", err
		}

		st, _ := r.update(func(st *Status) {
			st.Failures++
			st.LastError = err.Error()
		})
		if st.Failures > r.m.cfg.MaxRetries {
			return "", err
		}

		delay := backoff(r.m.cfg.BaseDelay, r.m.cfg.MaxDelay, st.Failures)
		logger.Log.WithFields(logrus.Fields{
			"session_id": r.sessionID,
			"failures":   st.Failures,
			"delay":      delay.String(),
		}).WithError(err).Warn("Beast request failed, retrying")
		r.publish(EventRetry, st, err.Error())

		if err := r.m.sleep(r.ctx, delay); err != nil {
			return "", errStopped
		}
	}
}

func (r *Run) discard() {
	logger.Log.WithField("session_id", r.sessionID).Info("Discarding response received after stop")
	r.publish(EventDiscarded, r.Status(), "")
}

func (r *Run) applyFiles(reply string) {
	parsed := r.parser.Parse(reply)
	if len(parsed) == 0 {
		return
	}
	var names []string
	for _, f := range parsed {
		if r.terminated() {
			logger.Log.WithField("session_id", r.sessionID).Info("Run ended, skipping remaining files")
			break
		}
		if _, _, err := r.m.store.UpsertFile(r.sessionID, f.Name, f.Content, f.Language); err != nil {
			logger.Log.WithError(err).WithField("file", f.Name).Warn("Failed to write file")
			continue
		}
		names = append(names, f.Name)
	}
	st, ok := r.update(func(st *Status) {
		for _, n := range names {
			if !contains(st.Files, n) {
				st.Files = append(st.Files, n)
			}
		}
	})
	if ok {
		r.publish(EventFiles, st, strings.Join(names, ", "))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
