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
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"github.com/zintix-labs/quizlab/errs"
	"gopkg.in/yaml.v3"
)

// File 是 quizlab serve --config 讀取的 YAML；每個欄位都可以被 CLI flag 覆寫。
//
//	addr: ":5808"
//	log_mode: prod
//	redis_addr: "127.0.0.1:6379"
//	redis_ttl: 2h
//	request_timeout: 5s
//	shutdown_timeout: 10s
type File struct {
	Addr            string `yaml:"addr"`
	LogMode         string `yaml:"log_mode"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisTTL        string `yaml:"redis_ttl"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// Load 讀取 YAML 設定檔；path 為空時回傳零值。未知欄位視為錯誤。
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, errs.Wrap(err, "read server config failed")
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return f, errs.NewWithExtra(errs.Warn, "invalid server config", err.Error())
	}
	for _, d := range []string{f.RedisTTL, f.RequestTimeout, f.ShutdownTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return f, errs.Warnf("invalid duration %q", d)
		}
	}
	return f, nil
}

// Duration 解析 raw；空字串或格式錯誤時回傳 fallback。
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
