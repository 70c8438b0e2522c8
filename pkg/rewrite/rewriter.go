// Package rewrite 负责把"真实"摘要批量送给 LLM 改写为易读文本。
// 缺省摘要文案原样直通；改写失败永远降级为原文，不向调用方传播错误。
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/report_forge/pkg/langu"
	"github.com/iWorld-y/report_forge/pkg/logger"
)

// MockPrefix 未配置 LLM 时 mock 输出的前缀，便于离线跑通整条流水线
const MockPrefix = "[LLM_OUTPUT]"

type promptSet struct {
	system string
	user   string
}

// prompts 各语言的改写提示词
var prompts = map[string]promptSet{
	// TC
	"1": {
		system: "你是一位專業報告文字編輯，擅長將專業術語改寫成易懂、口吻中性且不過度承諾的白話文。\n" +
			"請遵守以下原則：\n" +
			"1) 繁體中文，不要簡體字。\n" +
			"2) 不臆測、不新增原文未提及的資訊。\n" +
			"3) 保留數字與時間單位(例：3個月、每週)。\n" +
			"4) 將艱澀術語改為一般人能懂的說法。\n" +
			"5) 口吻中性、尊重、具可執行性。\n" +
			"6) 僅輸出『改寫後的單一段文字』，不要加標題或前綴。\n" +
			"7) 單段落1~3句，盡量不超過60字，總長度不超過300字。\n" +
			"8) 譯文以敘述句呈現，不要加入「如果...那麼...」等語氣開頭\n",
		user: "請將以下內容改寫為專業且易讀、好理解的文字，並且結構及語言要與原文接近：",
	},
	// EN
	"2": {
		system: "You are a professional report editor skilled at rewriting domain terms into plain, neutral language without overpromising.\n" +
			"Please follow these principles:\n" +
			"1) Do not speculate or add any information not mentioned in the original text.\n" +
			"2) Keep all numbers and time units.\n" +
			"3) Replace difficult terms with everyday language understandable to the general public.\n" +
			"4) Maintain a neutral, respectful, and actionable tone.\n" +
			"5) Output only the rewritten single paragraph — do not include any titles or prefixes.\n" +
			"6) Write 1–3 sentences per paragraph, with a total length not exceeding 300 characters.\n" +
			"7) Use declarative sentences only; avoid starting with conditional phrases like 'If... then...'.\n",
		user: "Please rewrite the following text into professional, readable, and easy-to-understand language, while keeping the structure and tone close to the original text:",
	},
	// JP
	"3": {
		system: "あなたは専門レポートのライターであり、専門用語をわかりやすく、中立的で誇張のない口調に書き換えることが得意です。\n" +
			"次の原則に従ってください：\n" +
			"1) 原文に記載されていない情報を推測したり、追加したりしないこと。\n" +
			"2) 数値や時間の単位は必ず残すこと。\n" +
			"3) 難解な専門用語は一般の人が理解できる表現に置き換えること。\n" +
			"4) 口調は中立的で、敬意を持ち、実行可能な内容にすること。\n" +
			"5) 出力は改写後の単一の段落のみとし、タイトルや前置きは加えないこと。\n" +
			"6) 段落は1〜3文、全体で300字を超えないようにすること。\n" +
			"7) 叙述文で書くこと。\n",
		user: "次の内容を、読みやすく理解しやすい表現に書き換えてください。文章の構成と言葉の調子は原文に近づけてください。",
	},
	// SC
	"4": {
		system: "你是一位专业报告文字编辑，擅长将专业术语改写为通俗易懂、语气中立且不过度承诺的文字。\n" +
			"请遵守以下原则：\n" +
			"1) 不臆测、不添加原文未提及的信息。" +
			"2) 保留数字与时间单位。" +
			"3) 将艰涩的术语改写为大众能理解的表达方式。" +
			"4) 保持语气中立、尊重且具可执行性。" +
			"5) 仅输出改写后的单一段文字，不要加标题或前缀。" +
			"6) 简体中文。" +
			"7) 每段1至3句，总长度不超过300字。" +
			"8) 使用陈述句表达，不要以“如果……那么……”等语气开头。",
		user: "请将以下内容改写为专业、易读且容易理解的文字，并保持与原文相近的结构和语气：",
	},
}

var suggestedWaitRe = regexp.MustCompile(`try again in ([\d.]+)s`)

// Rewriter 绑定单一语言的摘要改写器
type Rewriter struct {
	langNo     string
	cm         model.BaseChatModel // nil 表示 mock 模式
	limiter    *rate.Limiter
	defaults   map[string]struct{}
	workers    int
	maxRetries int
	baseDelay  time.Duration
}

// Options 改写器可调参数，零值使用缺省配置
type Options struct {
	Limiter    *rate.Limiter
	Workers    int
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRewriter 创建改写器。cm 为 nil 时进入 mock 模式，
// 所有真实摘要返回 MockPrefix + 原文，流程与线上一致。
func NewRewriter(langNo string, cm model.BaseChatModel, defaults langu.Table, opts Options) (*Rewriter, error) {
	if _, ok := prompts[langNo]; !ok {
		return nil, fmt.Errorf("不支持的语言编号: %q", langNo)
	}

	defaultSet := map[string]struct{}{}
	for _, lit := range defaults.SummaryLiterals() {
		defaultSet[lit] = struct{}{}
	}

	r := &Rewriter{
		langNo:     langNo,
		cm:         cm,
		limiter:    opts.Limiter,
		defaults:   defaultSet,
		workers:    opts.Workers,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}
	if r.workers <= 0 {
		r.workers = 3
	}
	if r.maxRetries <= 0 {
		r.maxRetries = 3
	}
	if r.baseDelay <= 0 {
		r.baseDelay = time.Second
	}
	if r.cm == nil {
		logger.Log.Info("未配置 LLM，摘要改写进入 mock 模式")
	}
	return r, nil
}

// RewriteBatch 批量改写。返回 原文 -> 改写后文本 的映射：
// 缺省文案直通，真实摘要去重后并发改写，每个任务写自己的结果槽，
// 全部结束后再合并，避免 worker 并发写共享 map。
func (r *Rewriter) RewriteBatch(ctx context.Context, suggestions []string) map[string]string {
	results := make(map[string]string, len(suggestions))
	if len(suggestions) == 0 {
		logger.Log.Warn("待改写清单为空")
		return results
	}

	var targets []string
	seen := map[string]struct{}{}
	for _, s := range suggestions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := r.defaults[s]; ok {
			results[s] = s
			continue
		}
		targets = append(targets, s)
	}

	logger.Log.Infof("开始改写 %d 笔文本（其中 %d 笔缺省文案直通）", len(targets), len(results))

	slots := make([]string, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, s := range targets {
		g.Go(func() error {
			slots[i] = r.rewriteOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	for i, s := range targets {
		results[s] = slots[i]
	}
	logger.Log.Infof("改写完成 %d 笔", len(results))
	return results
}

// rewriteOne 改写单条摘要。速率限制类错误按指数退避重试，
// 其余错误立即降级为原文；重试额度耗尽同样返回原文。
func (r *Rewriter) rewriteOne(ctx context.Context, suggestion string) string {
	if r.cm == nil {
		return MockPrefix + suggestion
	}

	p := prompts[r.langNo]
	messages := []*schema.Message{
		{Role: schema.System, Content: p.system},
		{Role: schema.User, Content: p.user + suggestion},
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return suggestion
			}
		}

		resp, err := r.cm.Generate(ctx, messages)
		if err == nil {
			logger.Log.Debugf("改写成功: %s", clip(suggestion, 30))
			return strings.TrimSpace(resp.Content)
		}

		if !isRateLimitErr(err) {
			logger.Log.Errorf("改写失败，降级为原文 - %s: %v", clip(suggestion, 50), err)
			return suggestion
		}

		wait := retryWait(err.Error(), attempt, r.baseDelay)
		logger.Log.Warnf("触发速率限制，等待 %.1fs（第 %d/%d 次）", wait.Seconds(), attempt+1, r.maxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return suggestion
		}
	}

	logger.Log.Errorf("达到最大重试次数，降级为原文 - %s", clip(suggestion, 50))
	return suggestion
}

// isRateLimitErr 判断是否为速率限制类错误
func isRateLimitErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests")
}

// retryWait 优先使用服务端建议的等待时间，否则按 baseDelay*2^attempt 退避
func retryWait(errMsg string, attempt int, baseDelay time.Duration) time.Duration {
	if m := suggestedWaitRe.FindStringSubmatch(errMsg); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return time.Duration(secs*float64(time.Second)) + 100*time.Millisecond
		}
	}
	return baseDelay * time.Duration(1<<attempt)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
