// Package coord runs the coordinator pattern: workers that increment one
// shared counter under its lock, producers that stream messages through
// cloned senders of one channel, and an orchestrator that joins every task,
// drains the channel to end of stream and reads the final counter.
package coord

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NetPo4ki/go-coord/channel"
	"github.com/NetPo4ki/go-coord/shared"
	"github.com/NetPo4ki/go-coord/task"
)

// Message is what producers send: the producer's index and a per-producer
// sequence number starting at zero.
type Message struct {
	Producer int
	Seq      int
}

type Config struct {
	Workers   int
	Producers int
	Messages  int
	// InjectPoison adds a task that panics while holding the counter lock
	// after the workers are joined, then checks that Lock reports the
	// poisoning. The final counter is read through the poisoned guard.
	InjectPoison bool

	Observer task.Observer
	Logger   *slog.Logger
}

func (c Config) validate() error {
	if c.Workers < 0 || c.Producers < 0 || c.Messages < 0 {
		return fmt.Errorf("coord: negative size in config (workers=%d producers=%d messages=%d)",
			c.Workers, c.Producers, c.Messages)
	}
	return nil
}

type Report struct {
	Counter     int
	Received    []Message
	PerProducer map[int][]int
	Sent        int
	Failures    []error
	Poisoned    bool
	Elapsed     time.Duration

	cfg Config
}

// Run executes one coordination round. Task failures do not abort the run;
// they are collected in Report.Failures. The returned error is non-nil only
// for an invalid Config.
func Run(cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	rep := &Report{PerProducer: make(map[int][]int, cfg.Producers), cfg: cfg}

	counter := shared.NewRef(0)
	counter.OnRelease(func(final int) {
		log.Debug("counter released", slog.Int("value", final))
	})
	tx, rx := channel.New[Message]()

	workers := make([]*task.Handle[struct{}], 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		workers = append(workers, task.SpawnWith(counter.Clone(), increment,
			task.WithName(fmt.Sprintf("worker-%d", i)), task.WithObserver(cfg.Observer)))
	}

	producers := make([]*task.Handle[int], 0, cfg.Producers)
	for p := 0; p < cfg.Producers; p++ {
		producers = append(producers, task.SpawnWith(tx.Clone(), produce(p, cfg.Messages),
			task.WithName(fmt.Sprintf("producer-%d", p)), task.WithObserver(cfg.Observer)))
	}
	tx.Close()
	log.Info("tasks spawned", slog.Int("workers", cfg.Workers), slog.Int("producers", cfg.Producers))

	if _, err := task.JoinAll(workers...); err != nil {
		rep.Failures = append(rep.Failures, unjoin(err)...)
	}
	sent, err := task.JoinAll(producers...)
	if err != nil {
		rep.Failures = append(rep.Failures, unjoin(err)...)
	}
	for _, n := range sent {
		rep.Sent += n
	}

	if cfg.InjectPoison {
		poisoner := task.SpawnWith(counter.Clone(), poisonCounter,
			task.WithName("poisoner"), task.WithObserver(cfg.Observer))
		if _, err := poisoner.Join(); err != nil {
			rep.Failures = append(rep.Failures, err)
		}
	}

	for msg := range rx.All() {
		rep.Received = append(rep.Received, msg)
		rep.PerProducer[msg.Producer] = append(rep.PerProducer[msg.Producer], msg.Seq)
	}

	g, err := counter.Lock()
	var pe *shared.PoisonError[int]
	if errors.As(err, &pe) {
		rep.Poisoned = true
		log.Warn("counter lock poisoned, reading value anyway")
		g = pe.Guard()
	}
	rep.Counter = g.Get()
	g.Unlock()
	counter.Release()

	rep.Elapsed = time.Since(start)
	log.Info("coordination finished",
		slog.Int("counter", rep.Counter),
		slog.Int("received", len(rep.Received)),
		slog.Int("failures", len(rep.Failures)),
		slog.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

func increment(c *shared.Ref[int]) (struct{}, error) {
	defer c.Release()
	return struct{}{}, c.With(func(n *int) error {
		*n++
		return nil
	})
}

func produce(p, count int) func(*channel.Sender[Message]) (int, error) {
	return func(tx *channel.Sender[Message]) (int, error) {
		defer tx.Close()
		for i := 0; i < count; i++ {
			if err := tx.Send(Message{Producer: p, Seq: i}); err != nil {
				return i, err
			}
		}
		return count, nil
	}
}

func poisonCounter(c *shared.Ref[int]) (struct{}, error) {
	defer c.Release()
	return struct{}{}, c.With(func(n *int) error {
		*n += 1000
		panic("injected poison: failing while holding the counter lock")
	})
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// Verify checks the report against the properties every run must satisfy:
// the counter equals the number of successful increments, every sent
// message arrived exactly once, and each producer's messages arrived in
// send order.
func (r *Report) Verify() error {
	var errs []error
	wantCounter := r.cfg.Workers
	if r.cfg.InjectPoison {
		wantCounter += 1000
	}
	if r.Counter != wantCounter {
		errs = append(errs, fmt.Errorf("counter = %d, want %d", r.Counter, wantCounter))
	}
	if want := r.cfg.Producers * r.cfg.Messages; len(r.Received) != want || r.Sent != want {
		errs = append(errs, fmt.Errorf("received %d and sent %d messages, want %d", len(r.Received), r.Sent, want))
	}
	for p, seqs := range r.PerProducer {
		for i, seq := range seqs {
			if seq != i {
				errs = append(errs, fmt.Errorf("producer %d: message %d has seq %d", p, i, seq))
				break
			}
		}
	}
	if r.cfg.InjectPoison != r.Poisoned {
		errs = append(errs, fmt.Errorf("poisoned = %t, want %t", r.Poisoned, r.cfg.InjectPoison))
	}
	return errors.Join(errs...)
}
