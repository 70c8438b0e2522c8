// Package report 把单个 record 的投影行编排为层级化的报告文本。
//
// 层级关系：
//
//	GROUP
//	    ITEM
//	        COMMENT
//	            SUMMARY（改写后，无改写结果时保留原文）
package report

import (
	"sort"
	"strings"

	"github.com/iWorld-y/report_forge/pkg/model"
)

// block 同一 (分组, 摘要) 组合编排出的中间单元
type block struct {
	items   []string
	comment []string
	summary string
}

// Compile 编排一个 record 的报告文本。
// rows 必须是上游预处理后的确定性顺序；rewritten 为摘要原文 -> 改写后文本，
// 查不到的摘要按原文输出；defaultSummary 为该语言的缺省摘要文案。
func Compile(rows []model.ProjectedRow, defaultSummary string, rewritten map[string]string) string {
	var lines []string

	groupKeys, groupRows := partitionByGroup(rows)
	for _, group := range groupKeys {
		lines = append(lines, strings.TrimSpace(group))

		blocks := buildBlocks(groupRows[group], defaultSummary)
		blocks = reorderByItemTuple(blocks)

		lastKey := ""
		emitted := false
		for _, b := range blocks {
			key := strings.Join(b.items, "\x00")
			if !emitted || key != lastKey {
				lines = append(lines, "    "+strings.Join(b.items, "、"))
				lastKey = key
				emitted = true
			}

			if len(b.comment) > 0 {
				lines = append(lines, "        "+strings.Join(b.comment, "、"))
			}

			if b.summary != "" {
				text := b.summary
				if rw, ok := rewritten[b.summary]; ok {
					text = rw
				}
				lines = append(lines, "            "+text+"\n")
			}
		}
	}

	return strings.Join(lines, "\n")
}

// partitionByGroup 按分组名切分，保留首次出现顺序；
// 分组名相同但不相邻的行会并入首次出现的桶
func partitionByGroup(rows []model.ProjectedRow) ([]string, map[string][]model.ProjectedRow) {
	var keys []string
	buckets := map[string][]model.ProjectedRow{}
	for _, r := range rows {
		if _, ok := buckets[r.Group]; !ok {
			keys = append(keys, r.Group)
		}
		buckets[r.Group] = append(buckets[r.Group], r)
	}
	return keys, buckets
}

// buildBlocks 在一个分组内按摘要切分并生成 block。
// 缺省摘要逐条所见独立成块（"无补充说明"不跨所见合并）；
// 真实摘要视为合并键，同摘要下的项目与所见各自去重后合为一块。
func buildBlocks(rows []model.ProjectedRow, defaultSummary string) []block {
	var blocks []block

	var summaryKeys []string
	bySummary := map[string][]model.ProjectedRow{}
	for _, r := range rows {
		if _, ok := bySummary[r.Summary]; !ok {
			summaryKeys = append(summaryKeys, r.Summary)
		}
		bySummary[r.Summary] = append(bySummary[r.Summary], r)
	}

	for _, summary := range summaryKeys {
		part := bySummary[summary]

		if summary == defaultSummary {
			var commentKeys []string
			byComment := map[string][]model.ProjectedRow{}
			for _, r := range part {
				if _, ok := byComment[r.Comment]; !ok {
					commentKeys = append(commentKeys, r.Comment)
				}
				byComment[r.Comment] = append(byComment[r.Comment], r)
			}
			for _, comment := range commentKeys {
				items := uniqueItemNames(byComment[comment])
				blocks = append(blocks, block{
					items:   items,
					comment: []string{strings.TrimSpace(comment)},
					summary: strings.TrimSpace(summary),
				})
			}
			continue
		}

		items := uniqueItemNames(part)
		var comments []string
		seen := map[string]struct{}{}
		for _, r := range part {
			c := strings.TrimSpace(r.Comment)
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			comments = append(comments, c)
		}
		blocks = append(blocks, block{
			items:   items,
			comment: comments,
			summary: strings.TrimSpace(summary),
		})
	}

	return blocks
}

// reorderByItemTuple 按项目元组首次出现的位置稳定重排，
// 使项目集合相同的 block 相邻，且首见的项目集合保持在前
func reorderByItemTuple(blocks []block) []block {
	firstSeen := map[string]int{}
	for i, b := range blocks {
		key := strings.Join(b.items, "\x00")
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
		}
	}

	reordered := make([]block, len(blocks))
	copy(reordered, blocks)
	// 稳定排序：键相同则保持原有相对顺序
	sort.SliceStable(reordered, func(i, j int) bool {
		return firstSeen[strings.Join(reordered[i].items, "\x00")] <
			firstSeen[strings.Join(reordered[j].items, "\x00")]
	})
	return reordered
}

// uniqueItemNames 按项目代码去重（保留首次出现），返回项目显示名列表
func uniqueItemNames(rows []model.ProjectedRow) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, r := range rows {
		code := strings.TrimSpace(r.ItemCode)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		names = append(names, strings.TrimSpace(r.ItemName))
	}
	return names
}
