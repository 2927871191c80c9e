package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"formflow/internal/bot"
	"formflow/internal/step"
	"formflow/internal/workflow"

	"go.uber.org/zap"
)

// finish assembles and persists the submission, then writes the
// terminal transcript entry. Called with the session lock held. On a
// store failure the session parks in StateSubmissionFailed and Retry
// re-enters here with everything intact.
func (i *Interpreter) finish(ctx context.Context, sess *Session) error {
	terminal := i.terminalStep(sess)

	if i.submissionID == "" {
		id, err := i.createSubmission(ctx, sess)
		if err != nil {
			sess.State = StateSubmissionFailed
			return fmt.Errorf("failed to submit: %w", err)
		}
		i.submissionID = id
		i.createAttachments(ctx, sess, id)
	}

	if terminal.Type == step.TypeExternalBrowser {
		sess.State = StateRedirected
		i.appendEntry(sess, Entry{
			Kind:   EntryRedirect,
			StepID: terminal.ID,
			Payload: map[string]interface{}{
				"url":        terminal.URL,
				"buttonText": terminal.ButtonText,
			},
			At: time.Now(),
		})
		return nil
	}

	sess.State = StateCompleted
	i.appendEntry(sess, Entry{
		Kind:   EntryCompleted,
		StepID: terminal.ID,
		Payload: map[string]interface{}{
			"title":         terminal.Title,
			"message":       terminal.Message,
			"showConfetti":  terminal.ShowConfetti,
			"animationType": terminal.AnimationType,
		},
		At: time.Now(),
	})
	return nil
}

// terminalStep finds the walked list's terminal step. A normalized list
// always has one; if it is somehow missing, fall back to a default
// end_screen instead of failing the session.
func (i *Interpreter) terminalStep(sess *Session) step.Step {
	if idx := workflow.TerminalIndex(sess.Steps); idx >= 0 {
		return sess.Steps[idx]
	}
	i.log.Error("workflow has no terminal step, using default end screen",
		zap.String("service", sess.SelectedService))
	return step.New(step.TypeEndScreen)
}

func (i *Interpreter) createSubmission(ctx context.Context, sess *Session) (string, error) {
	if i.cfg.Submissions == nil {
		return "", fmt.Errorf("submission store not configured")
	}

	elapsed := time.Since(sess.StartedAt)
	score := i.cfg.Scorer.Score(bot.Signals{
		Elapsed:      elapsed,
		AnswerCount:  len(sess.Answers),
		Interactions: sess.Interactions,
	})

	payload := map[string]interface{}{
		"service": sess.SelectedService,
	}
	for id, a := range sess.Answers {
		payload[id] = a
	}
	payload["meta"] = map[string]interface{}{
		"elapsedMs": elapsed.Milliseconds(),
		"botScore":  score.Score,
		"isBot":     score.IsBot,
	}

	return i.cfg.Submissions.CreateSubmission(ctx, payload)
}

// createAttachments records one attachment per file answer. Creations
// run concurrently and a failed one does not abort the rest; failures
// are logged individually and left for the retry job.
func (i *Interpreter) createAttachments(ctx context.Context, sess *Session, submissionID string) {
	if i.cfg.Attachments == nil {
		return
	}

	var wg sync.WaitGroup
	for id, a := range sess.Answers {
		ref, ok := a.Answer.(FileRef)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(stepID string, ref FileRef) {
			defer wg.Done()
			if _, err := i.cfg.Attachments.CreateAttachment(ctx, submissionID, ref); err != nil {
				i.log.Error("failed to create attachment",
					zap.String("submission_id", submissionID),
					zap.String("step_id", stepID),
					zap.String("storage_id", ref.StorageID),
					zap.Error(err))
			}
		}(id, ref)
	}
	wg.Wait()
}
