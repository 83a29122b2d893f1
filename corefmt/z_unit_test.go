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

package corefmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zintix-labs/quizlab/sdk/core"
)

func TestBase64URLCoreSnapshot(t *testing.T) {
	c := core.New(core.Default().New(7))
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	s := EncodeBase64URL(snap)
	if strings.ContainsAny(s, "+/=") {
		t.Fatalf("base64url must be url-safe and unpadded: %s", s)
	}
	back, err := DecodeBase64URL(s)
	if err != nil || !bytes.Equal(back, snap) {
		t.Fatalf("round trip failed: %v", err)
	}
	if _, err := DecodeBase64URL("***"); err == nil {
		t.Fatalf("invalid input must fail")
	}
}

func TestPackUnpack(t *testing.T) {
	src := bytes.Repeat([]byte(`{"player_id":"p1","score":10},`), 200)
	p := Pack(src)
	if !strings.HasPrefix(p, "z.") {
		t.Fatalf("packed text must carry the z. prefix")
	}
	if len(p) >= len(src) {
		t.Fatalf("repetitive json must compress: %d >= %d", len(p), len(src))
	}
	back, err := Unpack(p)
	if err != nil || !bytes.Equal(back, src) {
		t.Fatalf("unpack failed: %v", err)
	}

	plain, err := Unpack(EncodeBase64URL([]byte("abc")))
	if err != nil || string(plain) != "abc" {
		t.Fatalf("unprefixed input must decode as plain base64url: %q %v", plain, err)
	}
	if _, err := Unpack("z." + EncodeBase64URL([]byte("not zstd"))); err == nil {
		t.Fatalf("garbage after the prefix must fail")
	}
}
