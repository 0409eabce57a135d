package probe

import (
	"encoding/hex"
	"fmt"
	"io"

	"tunprobe/internal/packet"
)

type reporter struct {
	w io.Writer
}

func (r reporter) sent(idx int, p packet.Probe, n int) {
	fmt.Fprintf(r.w, "probe %d: wrote %d bytes %s\n", idx, n, p)
}

func (r reporter) reply(idx int, raw []byte, sum packet.Summary, decodeErr error, matched bool) {
	switch {
	case decodeErr != nil:
		fmt.Fprintf(r.w, "probe %d: reply %d bytes (undecodable: %v)\n", idx, len(raw), decodeErr)
	case matched:
		fmt.Fprintf(r.w, "probe %d: reply %s\n", idx, sum)
	default:
		fmt.Fprintf(r.w, "probe %d: unrelated %s\n", idx, sum)
	}
	fmt.Fprint(r.w, hex.Dump(raw))
}

func (r reporter) timeout(idx int) {
	fmt.Fprintf(r.w, "probe %d: no reply\n", idx)
}
