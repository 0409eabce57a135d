// Package probe drives the write-then-read exchange against a TUN device.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"tunprobe/internal/bufferpool"
	"tunprobe/internal/packet"
)

const DefaultReadSize = 1024

// Device is the subset of a TUN device the runner needs. If it also
// implements SetReadDeadline, ReadTimeout is honoured; if it implements
// io.Closer it is closed when the run context is cancelled.
type Device interface {
	io.ReadWriter
}

type deadliner interface {
	SetReadDeadline(time.Time) error
}

type Options struct {
	// ReadSize bounds a single read; longer packets are truncated by the
	// kernel.
	ReadSize      int
	ReadsPerProbe int
	// ReadTimeout of zero blocks until a packet arrives.
	ReadTimeout time.Duration
	// Rate limits probes per second; zero sends back to back.
	Rate float64
}

// Exchange records one probe and what was read back after it.
type Exchange struct {
	Probe    packet.Probe
	Sent     []byte
	Replies  [][]byte
	Timeouts int
}

type Runner struct {
	dev     Device
	opts    Options
	log     *slog.Logger
	metrics *Metrics
	report  reporter
	bufs    *bufferpool.Pool
	limiter *rate.Limiter
}

// NewRunner prepares a run over dev. metrics may be nil.
func NewRunner(dev Device, opts Options, log *slog.Logger, metrics *Metrics, out io.Writer) *Runner {
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
	}
	if opts.ReadsPerProbe <= 0 {
		opts.ReadsPerProbe = 1
	}
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return &Runner{
		dev:     dev,
		opts:    opts,
		log:     log,
		metrics: metrics,
		report:  reporter{w: out},
		bufs:    bufferpool.New(opts.ReadSize),
		limiter: limiter,
	}
}

// Run sends each probe in order and performs the configured reads after
// it. The first write or read failure ends the run.
func (r *Runner) Run(ctx context.Context, probes []packet.Probe) ([]Exchange, error) {
	if c, ok := r.dev.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}
	if r.opts.ReadTimeout > 0 {
		if _, ok := r.dev.(deadliner); !ok {
			r.log.Warn("device has no read deadlines, reads will block", "timeout", r.opts.ReadTimeout)
		}
	}

	out := make([]Exchange, 0, len(probes))
	for i, p := range probes {
		ex, err := r.exchange(ctx, i+1, p)
		out = append(out, ex)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			return out, err
		}
	}
	return out, nil
}

func (r *Runner) exchange(ctx context.Context, idx int, p packet.Probe) (Exchange, error) {
	ex := Exchange{Probe: p}
	pkt, err := packet.Build(p)
	if err != nil {
		return ex, fmt.Errorf("probe %d: %w", idx, err)
	}
	ex.Sent = pkt

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return ex, err
		}
	}
	n, err := r.dev.Write(pkt)
	if err != nil {
		return ex, fmt.Errorf("write tun: %w", err)
	}
	if n != len(pkt) {
		return ex, fmt.Errorf("write tun: %w (%d of %d)", io.ErrShortWrite, n, len(pkt))
	}
	r.metrics.sent(n)
	r.log.Info("wrote packet", "probe", idx, "bytes", n, "dst", p.Dst)
	r.report.sent(idx, p, n)

	for i := 0; i < r.opts.ReadsPerProbe; i++ {
		reply, err := r.read()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			ex.Timeouts++
			r.metrics.timedOut()
			r.log.Debug("read timed out", "probe", idx, "timeout", r.opts.ReadTimeout)
			r.report.timeout(idx)
			continue
		}
		if err != nil {
			return ex, fmt.Errorf("read tun: %w", err)
		}
		ex.Replies = append(ex.Replies, reply)
		r.metrics.received(len(reply))

		sum, decodeErr := packet.Decode(reply)
		if decodeErr != nil {
			r.metrics.undecoded()
			r.log.Warn("undecodable reply", "probe", idx, "bytes", len(reply), "err", decodeErr)
		} else {
			r.log.Info("read packet", "probe", idx, "bytes", len(reply), "summary", sum.String())
		}
		r.report.reply(idx, reply, sum, decodeErr, isReply(p, reply))
	}
	return ex, nil
}

func (r *Runner) read() ([]byte, error) {
	if d, ok := r.dev.(deadliner); ok && r.opts.ReadTimeout > 0 {
		if err := d.SetReadDeadline(time.Now().Add(r.opts.ReadTimeout)); err != nil {
			r.log.Warn("set read deadline failed", "err", err)
		}
	}
	buf := r.bufs.Get()
	defer r.bufs.Put(buf)
	n, err := r.dev.Read(buf)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf[:n]...), nil
}

// isReply reports whether pkt travels back towards the probe's source.
func isReply(p packet.Probe, pkt []byte) bool {
	dst, ok := packet.DestV4(pkt)
	if !ok {
		return false
	}
	src, _ := packet.SourceV4(pkt)
	return dst == p.Src && src == p.Dst
}
