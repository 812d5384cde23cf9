package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func TestBuildOptions(t *testing.T) {
	cfg := ClientConfig{}
	for _, opt := range []ClientOption{
		WithHost("ch.local"),
		WithPort(8123),
		WithDatabase("stockcast"),
		WithCredentials("reader", "secret"),
		WithHTTP(true),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(90 * time.Second),
	} {
		opt(&cfg)
	}

	o := buildOptions(cfg)
	if len(o.Addr) != 1 || o.Addr[0] != "ch.local:8123" {
		t.Fatalf("addr = %v", o.Addr)
	}
	if o.Protocol != clickhouse.HTTP {
		t.Fatalf("protocol = %v, want HTTP", o.Protocol)
	}
	if o.Auth.Database != "stockcast" || o.Auth.Username != "reader" || o.Auth.Password != "secret" {
		t.Fatalf("auth = %+v", o.Auth)
	}
	if o.Settings["max_execution_time"] != 90 || o.Settings["async_insert"] != 1 || o.Settings["wait_for_async_insert"] != 1 {
		t.Fatalf("settings = %v", o.Settings)
	}
}

func TestBuildOptionsNativeWithoutAsync(t *testing.T) {
	o := buildOptions(ClientConfig{Host: "localhost", Port: 9000})
	if o.Protocol != clickhouse.Native {
		t.Fatalf("protocol = %v, want native", o.Protocol)
	}
	if _, ok := o.Settings["async_insert"]; ok {
		t.Fatalf("async_insert should be unset")
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithHost("")); err == nil {
		t.Fatalf("expected error without host")
	}
}
