package rewrite

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/report_forge/pkg/langu"
)

// fakeChatModel 可编程的 LLM 替身
type fakeChatModel struct {
	calls    atomic.Int64
	failures int64 // 前 N 次调用返回 err
	err      error
	reply    func(user string) string
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, f.err
	}
	user := in[len(in)-1].Content
	reply := f.reply
	if reply == nil {
		reply = func(s string) string { return s }
	}
	return &schema.Message{Role: schema.Assistant, Content: reply(user)}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func newTestRewriter(t *testing.T, cm model.BaseChatModel, maxRetries int) *Rewriter {
	t.Helper()
	r, err := NewRewriter("1", cm, langu.BuiltinDefaults(), Options{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRewriter() error = %v", err)
	}
	return r
}

func TestNewRewriterUnknownLanguage(t *testing.T) {
	if _, err := NewRewriter("7", nil, langu.BuiltinDefaults(), Options{}); err == nil {
		t.Error("未知语言应返回错误")
	}
}

func TestRewriteBatchMockMode(t *testing.T) {
	r := newTestRewriter(t, nil, 3)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤", "本項無補充說明"})
	if got["建議追蹤"] != MockPrefix+"建議追蹤" {
		t.Errorf("mock 输出 = %q", got["建議追蹤"])
	}
	if got["本項無補充說明"] != "本項無補充說明" {
		t.Errorf("缺省文案应直通, got %q", got["本項無補充說明"])
	}
}

func TestRewriteBatchEmpty(t *testing.T) {
	r := newTestRewriter(t, nil, 3)
	if got := r.RewriteBatch(context.Background(), nil); len(got) != 0 {
		t.Errorf("空输入应返回空映射, got %v", got)
	}
}

func TestRewriteBatchSuccessTrimsReply(t *testing.T) {
	cm := &fakeChatModel{reply: func(string) string { return "  改写后  " }}
	r := newTestRewriter(t, cm, 3)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤"})
	if got["建議追蹤"] != "改写后" {
		t.Errorf("got %q", got["建議追蹤"])
	}
}

func TestRewriteBatchDedupes(t *testing.T) {
	cm := &fakeChatModel{reply: func(string) string { return "rw" }}
	r := newTestRewriter(t, cm, 3)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤", "建議追蹤", "建議追蹤"})
	if len(got) != 1 {
		t.Errorf("结果数 = %d", len(got))
	}
	if n := cm.calls.Load(); n != 1 {
		t.Errorf("重复文本应只调用一次, got %d", n)
	}
}

func TestRewriteUnclassifiedErrorNoRetry(t *testing.T) {
	cm := &fakeChatModel{failures: 100, err: errors.New("boom")}
	r := newTestRewriter(t, cm, 3)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤"})
	if got["建議追蹤"] != "建議追蹤" {
		t.Errorf("非限流错误应立即降级为原文, got %q", got["建議追蹤"])
	}
	if n := cm.calls.Load(); n != 1 {
		t.Errorf("非限流错误不应重试, calls = %d", n)
	}
}

func TestRewriteRateLimitRetriesThenSucceeds(t *testing.T) {
	cm := &fakeChatModel{
		failures: 2,
		err:      fmt.Errorf("429 too many requests"),
		reply:    func(string) string { return "rw" },
	}
	r := newTestRewriter(t, cm, 3)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤"})
	if got["建議追蹤"] != "rw" {
		t.Errorf("got %q", got["建議追蹤"])
	}
	if n := cm.calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestRewriteRateLimitBudgetExhausted(t *testing.T) {
	cm := &fakeChatModel{failures: 100, err: errors.New("rate_limit exceeded")}
	r := newTestRewriter(t, cm, 2)

	got := r.RewriteBatch(context.Background(), []string{"建議追蹤"})
	if got["建議追蹤"] != "建議追蹤" {
		t.Errorf("重试耗尽应降级为原文, got %q", got["建議追蹤"])
	}
	if n := cm.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestIsRateLimitErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("429 Too Many Requests"), true},
		{errors.New("rate_limit_exceeded"), true},
		{errors.New("Too Many Requests"), true},
		{errors.New("connection refused"), false},
		{errors.New("json unmarshal failed"), false},
	}
	for _, c := range cases {
		if got := isRateLimitErr(c.err); got != c.want {
			t.Errorf("isRateLimitErr(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetryWait(t *testing.T) {
	if got := retryWait("rate limit, please try again in 2.5s", 0, time.Second); got != 2600*time.Millisecond {
		t.Errorf("服务端建议等待解析错误: %v", got)
	}
	if got := retryWait("429", 0, time.Second); got != time.Second {
		t.Errorf("attempt 0 = %v", got)
	}
	if got := retryWait("429", 2, time.Second); got != 4*time.Second {
		t.Errorf("attempt 2 = %v", got)
	}
}
