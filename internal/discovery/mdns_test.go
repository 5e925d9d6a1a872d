package discovery

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

type registration struct {
	instance, service, domain string
	port                      int
	text                      []string
}

// stubRegister records registrations instead of touching the network.
func stubRegister(calls *[]registration, err error) registerFunc {
	return func(instance, service, domain string, port int, text []string, _ []net.Interface, _ ...zeroconf.ServerOption) (*zeroconf.Server, error) {
		if err != nil {
			return nil, err
		}
		*calls = append(*calls, registration{instance, service, domain, port, text})
		return nil, nil
	}
}

func testInfo() ServiceInfo {
	return ServiceInfo{
		BridgeID:  "rf433-bridge-01",
		SiteID:    "site-001",
		Version:   "1.2.0",
		Port:      8433,
		Path:      "/api/v1",
		Protocols: []string{"selectplus_doorbell"},
	}
}

func TestServiceInfo_TXT(t *testing.T) {
	info := testInfo()
	info.Protocols = []string{"zeta", "alpha"}
	info.SiteID = ""

	got := info.TXT()
	want := []string{
		"bridge=rf433-bridge-01",
		"path=/api/v1",
		"protocols=alpha,zeta",
		"version=1.2.0",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("TXT() = %v, want %v", got, want)
	}

	parsed := ParseTXT(got)
	if parsed[TXTKeyBridgeID] != "rf433-bridge-01" || parsed[TXTKeyProtocols] != "alpha,zeta" {
		t.Errorf("ParseTXT() = %v", parsed)
	}
	if _, ok := parsed[TXTKeySite]; ok {
		t.Error("empty site should not be advertised")
	}
}

func TestParseTXT_BareKey(t *testing.T) {
	parsed := ParseTXT([]string{"flag", "a=b=c"})
	if v, ok := parsed["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
	if parsed["a"] != "b=c" {
		t.Errorf("a = %q, want %q", parsed["a"], "b=c")
	}
}

func TestServiceInfo_InstanceName(t *testing.T) {
	tests := []struct {
		name string
		info ServiceInfo
		want string
	}{
		{"default", ServiceInfo{BridgeID: "rf-hall"}, "Gray Logic RF rf-hall"},
		{"explicit", ServiceInfo{BridgeID: "rf-hall", Instance: "Hall radio"}, "Hall radio"},
		{"truncated", ServiceInfo{Instance: strings.Repeat("x", 80)}, strings.Repeat("x", MaxInstanceNameLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.InstanceName(); got != tt.want {
				t.Errorf("InstanceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvertiser_Advertise(t *testing.T) {
	var calls []registration
	adv := NewAdvertiser(Config{})
	adv.register = stubRegister(&calls, nil)

	if adv.Advertising() {
		t.Fatal("Advertising() = true before Advertise")
	}
	if err := adv.Advertise(testInfo()); err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	if !adv.Advertising() {
		t.Error("Advertising() = false after Advertise")
	}

	if len(calls) != 1 {
		t.Fatalf("register called %d times, want 1", len(calls))
	}
	c := calls[0]
	if c.instance != "Gray Logic RF rf433-bridge-01" || c.service != ServiceType || c.domain != Domain || c.port != 8433 {
		t.Errorf("registration = %+v", c)
	}

	// A second Advertise replaces the first.
	info := testInfo()
	info.Port = 9000
	if err := adv.Advertise(info); err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	if len(calls) != 2 || calls[1].port != 9000 {
		t.Errorf("calls = %+v", calls)
	}

	adv.Stop()
	adv.Stop()
	if adv.Advertising() {
		t.Error("Advertising() = true after Stop")
	}
}

func TestAdvertiser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ServiceInfo)
		regErr  error
		wantErr error
	}{
		{"missing bridge id", func(i *ServiceInfo) { i.BridgeID = "" }, nil, ErrInvalidInfo},
		{"port zero", func(i *ServiceInfo) { i.Port = 0 }, nil, ErrInvalidInfo},
		{"port too large", func(i *ServiceInfo) { i.Port = 70000 }, nil, ErrInvalidInfo},
		{"register fails", func(*ServiceInfo) {}, errors.New("no multicast"), ErrRegisterFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []registration
			adv := NewAdvertiser(Config{})
			adv.register = stubRegister(&calls, tt.regErr)

			info := testInfo()
			tt.modify(&info)
			if err := adv.Advertise(info); !errors.Is(err, tt.wantErr) {
				t.Errorf("Advertise() error = %v, want %v", err, tt.wantErr)
			}
			if adv.Advertising() {
				t.Error("Advertising() = true after a failed Advertise")
			}
		})
	}
}

func TestAdvertiser_UnknownInterface(t *testing.T) {
	adv := NewAdvertiser(Config{Interface: "does-not-exist0"})
	if ifaces := adv.interfaces(); ifaces != nil {
		t.Errorf("interfaces() = %v, want nil (all)", ifaces)
	}
}
