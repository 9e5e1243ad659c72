package build

import (
	"errors"
	"html"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"

	"arbor/internal/content"
	fsutil "arbor/internal/storage/fs"
)

var videoSrcRe = regexp.MustCompile(`<video\b[^>]*\bsrc="([^"]+)"`)

// MissingAsset is an embedded image or video with no file behind it.
type MissingAsset struct {
	Type content.Type
	Slug string
	Src  string
	Path string
}

// CheckAssets resolves every local embed of every item against publicRoot,
// where /{base}/images/... is served from publicRoot/images/....
func CheckAssets(repo *content.Repository, publicRoot string) ([]MissingAsset, error) {
	prefix := "/"
	if base := repo.BasePath(); base != "" {
		prefix = "/" + base + "/"
	}
	var missing []MissingAsset
	for _, t := range content.Types {
		for _, item := range repo.All(t) {
			for _, src := range assetSources(item) {
				if !strings.HasPrefix(src, prefix+"images/") {
					continue
				}
				rel, err := url.PathUnescape(strings.TrimPrefix(src, prefix))
				if err != nil {
					missing = append(missing, MissingAsset{Type: t, Slug: item.Slug, Src: src})
					continue
				}
				full, err := fsutil.JoinUnder(publicRoot, rel)
				if err != nil {
					missing = append(missing, MissingAsset{Type: t, Slug: item.Slug, Src: src})
					continue
				}
				_, err = os.Stat(full)
				if errors.Is(err, fs.ErrNotExist) {
					missing = append(missing, MissingAsset{Type: t, Slug: item.Slug, Src: src, Path: full})
					continue
				}
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return missing, nil
}

func assetSources(item content.ContentItem) []string {
	out := append([]string(nil), item.Images...)
	for _, m := range videoSrcRe.FindAllStringSubmatch(item.RawContent, -1) {
		out = append(out, html.UnescapeString(m[1]))
	}
	return out
}
