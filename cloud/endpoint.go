package cloud

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nexensys/scratch3-api/internal/framer"
)

// Variant selects which cloud data service a session talks to.
type Variant int

const (
	Scratch Variant = iota
	TurboWarp
)

func (v Variant) String() string {
	switch v {
	case Scratch:
		return "scratch"
	case TurboWarp:
		return "turbowarp"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts "scratch" or "turbowarp" (case-insensitive).
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scratch", "":
		return Scratch, nil
	case "turbowarp", "tw":
		return TurboWarp, nil
	}
	return 0, fmt.Errorf("unknown cloud variant %q (want scratch or turbowarp)", s)
}

const (
	ScratchURL   = "wss://clouddata.scratch.mit.edu/"
	TurboWarpURL = "wss://clouddata.turbowarp.org/"
	Origin       = "https://scratch.mit.edu"
)

// Endpoint is where and how a session connects.
type Endpoint struct {
	URL     string
	Header  http.Header
	Framing framer.Mode
}

// EndpointFor returns the endpoint of variant authenticated as id.
func EndpointFor(variant Variant, id Identity) (Endpoint, error) {
	h := http.Header{}
	h.Set("Origin", Origin)

	switch variant {
	case Scratch:
		h.Set("Cookie", "scratchsessionsid="+id.SessionCredential()+";")
		return Endpoint{URL: ScratchURL, Header: h, Framing: framer.Buffered}, nil
	case TurboWarp:
		h.Set("Cookie", ";")
		return Endpoint{URL: TurboWarpURL, Header: h, Framing: framer.PerMessage}, nil
	}
	return Endpoint{}, fmt.Errorf("unknown cloud variant %d", int(variant))
}
