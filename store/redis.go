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

package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zintix-labs/quizlab/errs"
)

const keyPrefix = "quizlab:"

// Redis 以 hash 保存房間與玩家欄位，並以 pub/sub 推播事件。
//
// 佈局：
//
//	HSET quizlab:room:{code}                 code mode_id mode_name phase
//	HSET quizlab:room:{code}:player:{id}     id name score gold position
//	ZADD quizlab:room:{code}:players NX      {加入時間} {id}
//	PUBLISH quizlab:room:{code}:events       {json event}
//
// HSET 是欄位層級的覆寫，同欄位並發寫入以最後一次為準。
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	buf    int
}

// NewRedis 建立 Redis store；ttl > 0 時每次寫入都會刷新房間相關 key 的存活時間。
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, buf: defaultSubBuffer}
}

func (r *Redis) roomKey(code string) string { return keyPrefix + RoomRecordID(code) }
func (r *Redis) playersKey(code string) string { return r.roomKey(code) + ":players" }
func (r *Redis) channel(code string) string { return r.roomKey(code) + ":events" }

func (r *Redis) Write(ctx context.Context, recordID string, fields map[string]any) error {
	code, pid, err := ParseRecordID(recordID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	key := keyPrefix + recordID
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if pid != "" {
		pipe.ZAddNX(ctx, r.playersKey(code), redis.Z{Score: float64(time.Now().UnixNano()), Member: pid})
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
		pipe.Expire(ctx, r.playersKey(code), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Wrap(err, "redis write failed: "+recordID)
	}
	return nil
}

func (r *Redis) SaveRoom(ctx context.Context, rs RoomState) error {
	if rs.Code == "" {
		return errs.NewWarn("room code required")
	}
	if err := r.Write(ctx, RoomRecordID(rs.Code), roomFields(rs)); err != nil {
		return err
	}
	for _, p := range rs.Players {
		if err := r.Write(ctx, PlayerRecordID(rs.Code, p.ID), PlayerFields(p)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) Read(ctx context.Context, code string) (RoomState, error) {
	room, err := r.client.HGetAll(ctx, r.roomKey(code)).Result()
	if err != nil {
		return RoomState{}, errs.Wrap(err, "redis read room failed")
	}
	ids, err := r.client.ZRange(ctx, r.playersKey(code), 0, -1).Result()
	if err != nil {
		return RoomState{}, errs.Wrap(err, "redis read players failed")
	}
	if len(room) == 0 && len(ids) == 0 {
		return RoomState{}, ErrNotFound
	}

	rs := RoomState{Code: code}
	fields := make(map[string]any, len(room))
	for k, v := range room {
		fields[k] = v
	}
	applyRoom(&rs, fields)
	rs.Code = code

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyPrefix+PlayerRecordID(code, id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return RoomState{}, errs.Wrap(err, "redis read player rows failed")
		}
	}
	rs.Players = make([]PlayerRow, 0, len(ids))
	for i, id := range ids {
		row := PlayerRow{ID: id}
		pf := make(map[string]any, 5)
		for k, v := range cmds[i].Val() {
			pf[k] = v
		}
		applyPlayer(&row, pf)
		row.ID = id
		rs.Players = append(rs.Players, row)
	}
	return rs, nil
}

func (r *Redis) Publish(ctx context.Context, code string, ev Event) error {
	ev.Room = code
	raw, err := json.Marshal(ev)
	if err != nil {
		return errs.Wrap(err, "marshal event failed")
	}
	if err := r.client.Publish(ctx, r.channel(code), raw).Err(); err != nil {
		return errs.Wrap(err, "redis publish failed")
	}
	return nil
}

// Subscribe 在訂閱確認後才回傳，之後 Publish 的事件保證送達（除非緩衝已滿被丟棄）。
func (r *Redis) Subscribe(ctx context.Context, code string) (<-chan Event, func(), error) {
	ps := r.client.Subscribe(ctx, r.channel(code))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, errs.Wrap(err, "redis subscribe failed")
	}
	out := make(chan Event, r.buf)
	var once sync.Once
	cancel := func() { once.Do(func() { _ = ps.Close() }) }

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	ids, err := r.client.ZRange(ctx, r.playersKey(code), 0, -1).Result()
	if err != nil {
		return errs.Wrap(err, "redis read players failed")
	}
	keys := []string{r.roomKey(code), r.playersKey(code)}
	for _, id := range ids {
		keys = append(keys, keyPrefix+PlayerRecordID(code, id))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errs.Wrap(err, "redis delete failed")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
