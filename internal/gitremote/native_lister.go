package gitremote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	nativeRemoteNameConstant            = "origin"
	headLineTemplateConstant            = "%s\t%s\n"
	listReferencesErrorTemplateConstant = "list references of %s: %w"
)

// NativeBranchLister queries the remote through go-git without a git executable or a clone.
type NativeBranchLister struct{}

// NewNativeBranchLister constructs a go-git backed lister.
func NewNativeBranchLister() *NativeBranchLister {
	return &NativeBranchLister{}
}

// ListBranches advertises the remote references and renders the branch heads in ls-remote format.
// An empty remote yields an empty listing.
func (lister *NativeBranchLister) ListBranches(executionContext context.Context, repository string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: nativeRemoteNameConstant,
		URLs: []string{repository},
	})

	references, listError := remote.ListContext(executionContext, &git.ListOptions{})
	if listError != nil {
		if errors.Is(listError, transport.ErrEmptyRemoteRepository) {
			return "", nil
		}
		return "", fmt.Errorf(listReferencesErrorTemplateConstant, repository, listError)
	}

	return RenderHeads(references), nil
}

// RenderHeads formats branch references as ls-remote lines sorted by reference name.
// Tags, HEAD and other references are skipped.
func RenderHeads(references []*plumbing.Reference) string {
	heads := make([]*plumbing.Reference, 0, len(references))
	for _, reference := range references {
		if reference == nil || !reference.Name().IsBranch() || reference.Type() != plumbing.HashReference {
			continue
		}
		heads = append(heads, reference)
	}
	sort.Slice(heads, func(leftIndex int, rightIndex int) bool {
		return heads[leftIndex].Name().String() < heads[rightIndex].Name().String()
	})

	var listingBuilder strings.Builder
	for _, head := range heads {
		listingBuilder.WriteString(fmt.Sprintf(headLineTemplateConstant, head.Hash().String(), head.Name().String()))
	}
	return listingBuilder.String()
}
