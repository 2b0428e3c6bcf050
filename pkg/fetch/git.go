// Copyright 2026 The TSI Authors.
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

package fetch

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/config"
)

// fetchGit implements spec.md §4.4 "Git": a shallow (depth 1) clone of
// the tag, else the branch, else the default branch, followed by an
// optional checkout of an explicit commit.
func (f *Fetcher) fetchGit(ctx context.Context, p *config.Package, dest string) error {
	opts := &git.CloneOptions{
		URL:          p.Source.URL,
		Depth:        1,
		SingleBranch: true,
	}

	switch {
	case p.Source.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(p.Source.Tag)
	case p.Source.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(p.Source.Branch)
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return errors.Wrapf(ErrCloneFailed, "%s: %v", p.Name, err)
	}

	if p.Source.Commit == "" {
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrapf(ErrCloneFailed, "%s: obtaining worktree: %v", p.Name, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(p.Source.Commit)}); err != nil {
		return errors.Wrapf(ErrCloneFailed, "%s: checking out commit %s: %v", p.Name, p.Source.Commit, err)
	}
	return nil
}
