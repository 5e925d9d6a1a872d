package discovery

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Service naming.
const (
	ServiceType = "_graylogic-rf._tcp"
	Domain      = "local."

	// MaxInstanceNameLen is the DNS-SD limit on a service instance label.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyBridgeID  = "bridge"
	TXTKeyVersion   = "version"
	TXTKeyPath      = "path"
	TXTKeyProtocols = "protocols"
	TXTKeySite      = "site"
)

// ServiceInfo describes the advertised API endpoint.
type ServiceInfo struct {
	// Instance is the human-visible name; defaults to "Gray Logic RF <bridge>".
	Instance  string
	BridgeID  string
	SiteID    string
	Version   string
	Port      int
	Path      string
	Protocols []string
}

// Config controls the advertiser.
type Config struct {
	// Interface restricts advertising to one network interface. Empty means all.
	Interface string

	// TTL overrides the record TTL. Zero keeps the zeroconf default.
	TTL time.Duration
}

// Logger defines the logging interface for the advertiser.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// registerFunc matches zeroconf.Register so tests can stub the network.
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (*zeroconf.Server, error)

// Advertiser publishes one ServiceInfo at a time.
//
// Thread Safety: All methods are safe for concurrent use.
type Advertiser struct {
	cfg      Config
	logger   Logger
	register registerFunc

	mu      sync.Mutex
	server  *zeroconf.Server
	current *ServiceInfo
}

// NewAdvertiser creates an advertiser. Nothing is published until Advertise.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{
		cfg:      cfg,
		logger:   noopLogger{},
		register: zeroconf.Register,
	}
}

// SetLogger sets the logger for the advertiser.
func (a *Advertiser) SetLogger(logger Logger) {
	a.logger = logger
}

// Advertise publishes info, replacing any earlier advertisement.
func (a *Advertiser) Advertise(info ServiceInfo) error {
	if err := info.validate(); err != nil {
		return err
	}

	opts := []zeroconf.ServerOption{}
	if a.cfg.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.cfg.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.shutdownLocked()

	instance := info.InstanceName()
	server, err := a.register(instance, ServiceType, Domain, info.Port, info.TXT(), a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterFailed, err)
	}

	a.server = server
	a.current = &info
	a.logger.Info("mdns advertisement started",
		"instance", instance,
		"service", ServiceType,
		"port", info.Port,
	)
	return nil
}

// Stop withdraws the advertisement. Safe to call when nothing is published.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
}

// Advertising reports whether an advertisement is active.
func (a *Advertiser) Advertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

func (a *Advertiser) shutdownLocked() {
	if a.server != nil {
		a.server.Shutdown()
	}
	if a.current != nil {
		a.logger.Info("mdns advertisement stopped", "instance", a.current.InstanceName())
	}
	a.server = nil
	a.current = nil
}

// interfaces returns nil (all interfaces) unless one is configured and exists.
func (a *Advertiser) interfaces() []net.Interface {
	if a.cfg.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		a.logger.Warn("mdns interface not found, using all", "interface", a.cfg.Interface, "error", err)
		return nil
	}
	return []net.Interface{*iface}
}

func (i ServiceInfo) validate() error {
	if i.BridgeID == "" {
		return fmt.Errorf("%w: bridge id is required", ErrInvalidInfo)
	}
	if i.Port < 1 || i.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidInfo, i.Port)
	}
	return nil
}

// InstanceName returns the instance label, truncated to the DNS-SD limit.
func (i ServiceInfo) InstanceName() string {
	name := i.Instance
	if name == "" {
		name = "Gray Logic RF " + i.BridgeID
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// TXT returns the TXT records as sorted "key=value" strings. Empty values
// are omitted.
func (i ServiceInfo) TXT() []string {
	protocols := append([]string(nil), i.Protocols...)
	sort.Strings(protocols)

	records := map[string]string{
		TXTKeyBridgeID:  i.BridgeID,
		TXTKeySite:      i.SiteID,
		TXTKeyVersion:   i.Version,
		TXTKeyPath:      i.Path,
		TXTKeyProtocols: strings.Join(protocols, ","),
	}

	out := make([]string, 0, len(records))
	for k, v := range records {
		if v != "" {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

// ParseTXT turns "key=value" strings back into a map. Entries without "="
// are kept as keys with an empty value.
func ParseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[k] = v
	}
	return out
}
