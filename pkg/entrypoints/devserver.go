package entrypoints

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// DevManifest builds the manifest served while the dev server runs: every
// entry points straight at its source through the dev origin.
func DevManifest(c *Catalog, base, origin string, v Version) *Manifest {
	entries := make(EntryPoints, c.Len())
	for _, e := range c.Entries() {
		url := []string{origin + base + e.RelPath}
		m := &EntryManifest{dev: true}
		if e.Kind == KindCSS {
			m.CSS = url
		} else {
			m.JS = url
		}
		entries[e.Name] = m
	}
	return &Manifest{
		Base:        base,
		EntryPoints: entries,
		Metadatas:   map[string]Metadata{},
		Version:     v,
		ViteServer:  &origin,
	}
}

// ServerOptions are the dev-server settings that shape its public origin.
type ServerOptions struct {
	OriginOverride string
	Origin         string
	HTTPS          bool
	Host           string
	Hostname       string
	HMRProtocol    string
	HMRHost        string
	HMRClientPort  int
}

// ResolveDevOrigin computes the origin browsers use to reach the dev server
// listening on listen ("host:port").
func ResolveDevOrigin(listen string, o ServerOptions) (string, error) {
	if o.OriginOverride != "" {
		return o.OriginOverride, nil
	}
	if o.Origin != "" {
		return o.Origin, nil
	}

	addrHost, addrPort, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("%w: dev server address %q: %v", ErrConfiguration, listen, err)
	}

	// a configured HMR protocol wins over the server's https flag
	protocol := "http"
	switch {
	case o.HMRProtocol != "":
		if o.HMRProtocol == "wss" {
			protocol = "https"
		}
	case o.HTTPS:
		protocol = "https"
	}

	host := firstNonEmpty(o.HMRHost, o.Hostname, o.Host, addrHost)
	if ip, err := netip.ParseAddr(host); err == nil && ip.Is6() && !ip.Is4In6() {
		host = "[" + host + "]"
	}

	port := addrPort
	if o.HMRClientPort > 0 {
		port = strconv.Itoa(o.HMRClientPort)
	}
	return protocol + "://" + host + ":" + port, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
