// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package matchertree

import (
	"regexp"
	"sort"
	"strconv"
)

// intrinsicRe matches the leading "(intrinsic_wo_chain 123:" /
// "(intrinsic_w_chain 123:" shape a DAG-ISel pattern source takes when it
// dispatches on a target intrinsic id.
var intrinsicRe = regexp.MustCompile(`^\(intrinsic_\w+\s+(\d+):`)

// TargetIntrinsics returns the distinct target intrinsic ids named by
// blamer patterns, restricted to ids for which known returns true.
// Owning a target's intrinsic table is compiler-pipeline integration,
// out of scope here, so the recognition predicate is the caller's.
func (bl *BlameList) TargetIntrinsics(known func(id int) bool) []int {
	seen := make(map[int]bool)
	for _, e := range bl.Entries {
		for _, pat := range e.Blamers {
			m := intrinsicRe.FindStringSubmatch(bl.table.Patterns[pat].Source)
			if m == nil {
				continue
			}
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if known != nil && !known(id) {
				continue
			}
			seen[id] = true
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
