package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"thera/internal/apperr"
	"thera/internal/pathutil"
	"thera/internal/runner"
	"thera/internal/upscale"
)

// ProjectedSize returns the current image size and the size an enlargement
// by multiplier would produce.
func (c *Controller) ProjectedSize(multiplier int) (from, to upscale.Size, err error) {
	if !upscale.ValidMultiplier(multiplier) {
		return upscale.Size{}, upscale.Size{}, fmt.Errorf("%w: %d", upscale.ErrUnsupportedMultiplier, multiplier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.size.Scale(multiplier), nil
}

// EnlargeNamed parses a method label such as "Lanczos" or "Super Resolution"
// and enlarges the current image with it.
func (c *Controller) EnlargeNamed(label string, multiplier int, destination string) error {
	method, err := upscale.ParseMethod(label, multiplier)
	if err != nil {
		err = apperr.Wrap(apperr.InferenceFailure, err, "choose method")
		c.emit(c.fail(nil, "enlarge", err))
		return err
	}
	return c.Enlarge(method, multiplier, destination)
}

// Enlarge queues an enlargement of the current image and returns at once.
// The outcome arrives as EnlargementFinished or ErrorOccurred.
func (c *Controller) Enlarge(method upscale.Method, multiplier int, destination string) error {
	c.mu.Lock()
	events, ticket, req, err := c.enlarge(method, multiplier, destination)
	c.commit(events)
	if err != nil {
		return err
	}

	go c.await(ticket, req)
	return nil
}

func (c *Controller) enlarge(method upscale.Method, multiplier int, destination string) ([]event, runner.Ticket[upscale.Report], upscale.Request, error) {
	var (
		events []event
		ticket runner.Ticket[upscale.Report]
	)

	current, ok := c.coll.Current()
	if !ok {
		err := apperr.Wrap(apperr.PathNotInCollection, nil, "no image is being viewed")
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}
	if c.size.Empty() {
		err := apperr.Wrap(apperr.InferenceFailure, nil, "%s has no pixel data", current)
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}

	dest, err := pathutil.Normalize(destination)
	if err != nil {
		err = apperr.Wrap(apperr.WriteFailure, err, "resolve %s", destination)
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}
	if !pathutil.IsEncodable(dest) {
		err = apperr.Wrap(apperr.UnsupportedFormat, nil, "cannot write %s", filepath.Base(dest))
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}
	if info, statErr := os.Stat(filepath.Dir(dest)); statErr != nil || !info.IsDir() {
		err = apperr.Wrap(apperr.WriteFailure, statErr, "destination folder of %s", filepath.Base(dest))
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}

	req, err := upscale.NewRequest(current, method, multiplier, c.size, dest)
	if err != nil {
		err = apperr.Wrap(apperr.InferenceFailure, err, "build request")
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}

	if c.closing {
		err = apperr.Wrap(apperr.InferenceFailure, runner.ErrPoolClosed, "queue enlargement")
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}

	// jobs must count the task before it can complete.
	c.jobs.Add(1)
	ticket, err = c.pool.Submit(func(ctx context.Context) (upscale.Report, error) {
		return c.enlarger.EnlargeFile(ctx, req)
	})
	if err != nil {
		c.jobs.Done()
		err = apperr.Wrap(apperr.InferenceFailure, err, "queue enlargement")
		return c.fail(events, "enlarge", err), ticket, upscale.Request{}, err
	}

	c.inFlight++
	c.state = Enlarging

	c.logger.WithFields(logrus.Fields{
		"job_id":      ticket.ID,
		"method":      req.Method.Name(),
		"multiplier":  req.Multiplier,
		"target":      req.Target.String(),
		"destination": req.DestinationPath,
		"in_flight":   c.inFlight,
		"slots":       c.pool.Slots(),
		"pending":     c.pool.Pending(),
	}).Info("SESSION: Enlargement submitted")

	events = append(events,
		func(p Presenter) { p.EnlargementStarted(req) },
		func(p Presenter) { p.StatusChanged(StatusEnlarging, PersistentHintMs) },
	)
	return events, ticket, req, nil
}

func (c *Controller) await(ticket runner.Ticket[upscale.Report], req upscale.Request) {
	defer c.jobs.Done()

	for completion := range ticket.Done {
		c.mu.Lock()
		c.commit(c.jobDone(req, completion))
	}
}

func (c *Controller) jobDone(req upscale.Request, completion runner.Completion[upscale.Report]) []event {
	var events []event

	c.inFlight--
	if c.inFlight == 0 && c.state == Enlarging {
		if _, ok := c.coll.Current(); ok {
			c.state = Viewing
		} else {
			c.state = Empty
		}
	}

	log := c.logger.WithFields(logrus.Fields{
		"job_id":     completion.ID,
		"elapsed_ms": completion.Elapsed.Milliseconds(),
		"in_flight":  c.inFlight,
	})

	if err := completion.Err; err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.Unknown {
			kind = apperr.InferenceFailure
		}
		log.WithError(err).WithField("kind", kind.String()).Error("SESSION: Enlargement failed")

		msg := err.Error()
		return append(events,
			func(p Presenter) { p.ErrorOccurred(kind, msg) },
			func(p Presenter) { p.StatusChanged(StatusFailed, FinishedHintMs) },
		)
	}

	dest := req.DestinationPath
	log.WithFields(logrus.Fields{
		"destination": dest,
		"output":      completion.Value.Output.String(),
	}).Info("SESSION: Enlargement finished")

	if c.track(dest) {
		events = c.title(events)
	}
	return append(events,
		func(p Presenter) { p.EnlargementFinished(dest) },
		func(p Presenter) { p.StatusChanged(StatusFinished, FinishedHintMs) },
	)
}
