package conf

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBootstrapDecodesDurations(t *testing.T) {
	raw := `{
		"server": {"http": {"addr": ":8000", "timeout": "1.5s"}},
		"data": {"database": {"driver": "sqlite", "source": "file::memory:"},
		         "redis": {"addr": "localhost:6379", "read_timeout": 200000000}},
		"metadata": {"url": "http://omdb", "api_key": "k", "max_retries": 2},
		"cache": {"ttl": "1m"}
	}`
	var bc Bootstrap
	if err := json.Unmarshal([]byte(raw), &bc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := bc.Server.Http.Timeout.AsDuration(); got != 1500*time.Millisecond {
		t.Errorf("http timeout = %s", got)
	}
	if got := bc.Data.Redis.ReadTimeout.AsDuration(); got != 200*time.Millisecond {
		t.Errorf("read timeout = %s", got)
	}
	if got := bc.Data.Redis.WriteTimeout.AsDuration(); got != 0 {
		t.Errorf("unset duration = %s, want 0", got)
	}
	if bc.Metadata.ApiKey != "k" || bc.Metadata.MaxRetries != 2 {
		t.Errorf("metadata = %+v", bc.Metadata)
	}
	if bc.Cache.Ttl.AsDuration() != time.Minute {
		t.Errorf("cache ttl = %s", bc.Cache.Ttl.AsDuration())
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("expected error for non-duration string")
	}
	if err := json.Unmarshal([]byte(`true`), &d); err == nil {
		t.Error("expected error for bool")
	}
	out, err := json.Marshal(NewDuration(90 * time.Second))
	if err != nil || string(out) != `"1m30s"` {
		t.Errorf("Marshal = %s, %v", out, err)
	}
}
