// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package svrcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zintix-labs/quizlab/errs"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizlab.yaml")
	raw := "addr: \":9000\"\nlog_mode: prod\nredis_addr: 127.0.0.1:6379\nredis_ttl: 2h\nshutdown_timeout: 8s\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Addr != ":9000" || f.LogMode != "prod" || f.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("file: %+v", f)
	}
	if got := Duration(f.RedisTTL, time.Minute); got != 2*time.Hour {
		t.Fatalf("redis ttl = %v", got)
	}
	if got := Duration(f.RequestTimeout, DefaultReqTimeout); got != DefaultReqTimeout {
		t.Fatalf("empty duration must fall back: %v", got)
	}
}

func TestParseRejects(t *testing.T) {
	if _, err := Parse([]byte("adr: typo\n")); err == nil || errs.Level(err) != errs.Warn {
		t.Fatalf("unknown field must be a warn error: %v", err)
	}
	if _, err := Parse([]byte("shutdown_timeout: soon\n")); err == nil {
		t.Fatalf("bad duration must fail")
	}
	if f, err := Parse(nil); err != nil || f != (File{}) {
		t.Fatalf("empty config must be zero: %+v %v", f, err)
	}
	if f, err := Load(""); err != nil || f != (File{}) {
		t.Fatalf("no path must be zero")
	}
}
