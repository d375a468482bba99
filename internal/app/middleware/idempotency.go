package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sawa/internal/app/commands"
	"sawa/internal/app/principal"
)

// IdempotentCommand is implemented by commands that can be safely retried with the same key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// IdempotencyRecord is a stored command result. Fingerprint is the hash of
// the command that produced it.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

type IdempotencyOptions struct {
	Codec ResultCodec
	// TTL bounds how long a stored result is replayed. Zero keeps results forever.
	TTL time.Duration
	Now func() time.Time
}

var (
	// ErrIdempotencyMismatch rejects a reused key whose command differs from
	// the one stored under it.
	ErrIdempotencyMismatch = errors.New("middleware: idempotency key reused with a different request")

	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

const anonymousScope = "anonymous"

// Idempotency replays the stored result of a command whose key was seen
// before by the same caller. Slots are scoped by command and principal, and a
// reused key with a different command body fails with ErrIdempotencyMismatch.
// Failed commands are not stored and may be retried with the same key.
func Idempotency(store IdempotencyStore, opts IdempotencyOptions) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	g := replayGuard{store: store, codec: opts.Codec, ttl: opts.TTL, now: opts.Now}
	if g.codec == nil {
		g.codec = JSONResultCodec{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := scopedKey(ctx, cmd.Key(), idCmd.IdempotencyKey())
			sum, err := fingerprint(cmd)
			if err != nil {
				return nil, err
			}
			if res, hit, err := g.replay(ctx, key, sum, idCmd.ResultPrototype); hit || err != nil {
				return res, err
			}
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := g.remember(ctx, key, sum, res); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

type replayGuard struct {
	store IdempotencyStore
	codec ResultCodec
	ttl   time.Duration
	now   func() time.Time
}

func (g replayGuard) replay(ctx context.Context, key, sum string, prototype func() any) (any, bool, error) {
	rec, found, err := g.store.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	if g.ttl > 0 && g.now().Sub(rec.OccurredAt) >= g.ttl {
		return nil, false, nil
	}
	if rec.Fingerprint != sum {
		return nil, false, ErrIdempotencyMismatch
	}
	out := prototype()
	if out == nil {
		return nil, false, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := g.codec.Decode(rec.Payload, out); err != nil {
			return nil, false, fmt.Errorf("middleware: replay %s: %w", key, err)
		}
	}
	return out, true, nil
}

func (g replayGuard) remember(ctx context.Context, key, sum string, res any) error {
	rec := IdempotencyRecord{Key: key, Fingerprint: sum, OccurredAt: g.now().UTC()}
	if res != nil {
		payload, err := g.codec.Encode(res)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return g.store.Save(ctx, rec)
}

// scopedKey builds "<command>:<principal>:<client key>".
func scopedKey(ctx context.Context, command, clientKey string) string {
	scope := anonymousScope
	if p, ok := principal.FromContext(ctx); ok && p.ID != "" {
		scope = p.ID
	}
	return command + ":" + scope + ":" + clientKey
}

// fingerprint hashes the JSON form of cmd. The client key is part of the
// command but is equal for every request that shares a slot.
func fingerprint(cmd commands.Command) (string, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("middleware: fingerprint %s: %w", cmd.Key(), err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
