package redisstream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsink-io/logsink/pkg/record"
)

type fakeStreamClient struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStreamClient) XAdd(args *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1-0", nil)
}

func TestSend_AppendsToStream(t *testing.T) {
	f := &fakeStreamClient{}
	s := &Sink{client: f, cfg: Config{Stream: "app:logs", MaxLen: 1000}}

	rec := record.New("ERROR", "myapp/cache")
	rec.Message = "eviction storm"

	require.NoError(t, s.Send(context.Background(), rec))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "app:logs", f.calls[0].Stream)
	assert.Equal(t, int64(1000), f.calls[0].MaxLenApprox)

	var got record.Record
	require.NoError(t, json.Unmarshal(f.calls[0].Values["record"].([]byte), &got))
	assert.Equal(t, "eviction storm", got.Message)
}

func TestSend_XAddErrorPropagates(t *testing.T) {
	f := &fakeStreamClient{err: errors.New("LOADING Redis is loading")}
	s := &Sink{client: f, cfg: Config{Stream: "logs"}}

	err := s.Send(context.Background(), record.New("ERROR", "myapp"))
	assert.ErrorContains(t, err, "LOADING")
}
