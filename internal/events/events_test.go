package events_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/faciam-dev/gadmin/internal/events"
	"github.com/faciam-dev/gadmin/pkg/admin"
)

type failSink struct {
	mu    sync.Mutex
	count int
}

func (f *failSink) Emit(context.Context, events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return errors.New("fail")
}

type memDLQ struct {
	mu       sync.Mutex
	attempts int
	lastErr  string
}

func (m *memDLQ) Store(_ context.Context, _ events.Event, attempts int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts, m.lastErr = attempts, lastErr
	return nil
}

func TestRetryThenDLQ(t *testing.T) {
	s := &failSink{}
	dlq := &memDLQ{}
	d := events.NewDispatcher(events.Config{Retry: events.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}}, dlq, s)
	ctx, cancel := context.WithCancel(context.Background())
	d.Emit(ctx, admin.Event{Name: admin.EventDeleted, Entity: "posts", ID: "1"})
	cancel()
	d.Wait()
	if s.count != 2 {
		t.Fatalf("attempts=%d", s.count)
	}
	if dlq.attempts != 2 || dlq.lastErr != "fail" {
		t.Fatalf("dlq = %+v", dlq)
	}
}

func TestWebhookSignature(t *testing.T) {
	var (
		gotSig string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Admin-Signature")
	}))
	defer srv.Close()
	wh := events.NewWebhookSink(events.WebhookConfig{Enabled: true, Endpoint: srv.URL, Secret: "s"})
	if err := wh.Emit(context.Background(), events.Event{Name: "n"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write(body)
	if want := "sha256=" + hex.EncodeToString(mac.Sum(nil)); gotSig != want {
		t.Fatalf("signature %q, want %q", gotSig, want)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	wh := events.NewWebhookSink(events.WebhookConfig{Enabled: true, Endpoint: srv.URL})
	if err := wh.Emit(context.Background(), events.Event{Name: "n"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRedisSinkChannelPerEntity(t *testing.T) {
	s := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: s.Addr()})
	sink := &events.RedisSink{Client: cli, Channel: "admin:{entity}"}
	sub := cli.Subscribe(context.Background(), "admin:posts")
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("sub: %v", err)
	}
	evt := events.Event{ID: "e1", Name: admin.EventCreated, Data: admin.Event{Entity: "posts", ID: "7"}}
	if err := sink.Emit(context.Background(), evt); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		var got events.Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "e1" || got.Data.ID != "7" {
			t.Fatalf("event mismatch: %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
}

func TestKafkaSink(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	prod := mocks.NewAsyncProducer(t, cfg)
	prod.ExpectInputAndSucceed()
	sink := &events.KafkaSink{Producer: prod, Topic: "admin"}
	if err := sink.Emit(context.Background(), events.Event{Name: "n", Data: admin.Event{Entity: "posts", ID: "1"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case msg := <-prod.Successes():
		if msg.Topic != "admin" {
			t.Fatalf("topic = %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "posts/1" {
			t.Fatalf("key = %s", key)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSQLDLQ(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE admin_events_failed (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, payload TEXT, attempts INTEGER, last_error TEXT)`); err != nil {
		t.Fatal(err)
	}
	q := &events.SQLDLQ{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "admin_"}
	if err := q.Store(context.Background(), events.Event{ID: "x", Name: "entity.created"}, 3, "boom"); err != nil {
		t.Fatalf("store: %v", err)
	}
	var (
		name     string
		attempts int
	)
	if err := db.QueryRow("SELECT name, attempts FROM admin_events_failed").Scan(&name, &attempts); err != nil {
		t.Fatal(err)
	}
	if name != "entity.created" || attempts != 3 {
		t.Fatalf("row = %s %d", name, attempts)
	}
}

func TestEntityFilter(t *testing.T) {
	if !events.EntityFilter(nil).Match("posts") {
		t.Fatal("empty filter must match")
	}
	f := events.EntityFilter{"posts", "tags"}
	if !f.Match("tags") || f.Match("users") {
		t.Fatalf("filter %v", f)
	}
}

func TestWebhookHeadersAndFilter(t *testing.T) {
	var calls int
	var event, delivery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		event, delivery = r.Header.Get("X-Admin-Event"), r.Header.Get("X-Admin-Delivery")
	}))
	defer srv.Close()
	wh := events.NewWebhookSink(events.WebhookConfig{Enabled: true, Endpoint: srv.URL, Entities: events.EntityFilter{"posts"}})
	ctx := context.Background()
	if err := wh.Emit(ctx, events.Event{ID: "d1", Name: admin.EventDeleted, Data: admin.Event{Entity: "tags"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if calls != 0 {
		t.Fatalf("filtered event delivered")
	}
	if err := wh.Emit(ctx, events.Event{ID: "d2", Name: admin.EventDeleted, Data: admin.Event{Entity: "posts"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if calls != 1 || event != admin.EventDeleted || delivery != "d2" {
		t.Fatalf("calls %d event %q delivery %q", calls, event, delivery)
	}
	if events.NewWebhookSink(events.WebhookConfig{Endpoint: srv.URL}) != nil {
		t.Fatal("disabled webhook built")
	}
}

func TestKafkaTopicPerEntity(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	prod := mocks.NewAsyncProducer(t, cfg)
	prod.ExpectInputAndSucceed()
	sink := &events.KafkaSink{Producer: prod, Topic: "admin.{entity}"}
	evt := events.Event{Name: admin.EventUpdated, Data: admin.Event{Entity: "posts", ID: "3", Tenant: "acme"}}
	if err := sink.Emit(context.Background(), evt); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case msg := <-prod.Successes():
		if msg.Topic != "admin.posts" {
			t.Fatalf("topic = %s", msg.Topic)
		}
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		if headers["event"] != admin.EventUpdated || headers["tenant"] != "acme" {
			t.Fatalf("headers = %v", headers)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
	prod.Close()
}

func TestRedisSinkTenantChannel(t *testing.T) {
	s := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: s.Addr()})
	sink := &events.RedisSink{Client: cli, Channel: "admin:{tenant}:{entity}", Only: events.EntityFilter{"posts"}}
	sub := cli.Subscribe(context.Background(), "admin:acme:posts")
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("sub: %v", err)
	}
	if err := sink.Emit(context.Background(), events.Event{ID: "skip", Data: admin.Event{Entity: "tags", Tenant: "acme"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := sink.Emit(context.Background(), events.Event{ID: "e2", Data: admin.Event{Entity: "posts", Tenant: "acme"}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		var got events.Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "e2" {
			t.Fatalf("got %q, want e2", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
}
