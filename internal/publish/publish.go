// Package publish renders enriched parishes into SEO posts and
// publishes them to WordPress. Posts always land as drafts; a human
// reviews before anything goes live.
package publish

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/collect"
	"modu-catholic/internal/config"
	"modu-catholic/internal/gemini"
	"modu-catholic/internal/model"
	"modu-catholic/internal/store"
	"modu-catholic/internal/wordpress"
)

const (
	publishedLogKey = "published_log"

	// WordPress rate-limit spacing.
	delayMin = 2 * time.Second
	delayMax = 5 * time.Second

	maxTags            = 10
	maxFooterLandmarks = 3

	defaultCategoryID = 1
)

// IntroGenerator produces the introduction paragraph of a post.
type IntroGenerator interface {
	GenerateIntro(ctx context.Context, p model.Parish) (string, error)
}

// Site is the slice of the wordpress client the publisher needs.
type Site interface {
	GetOrCreateTag(ctx context.Context, name string) (int, error)
	UploadImage(ctx context.Context, imageURL, filename string) (int, error)
	CreatePost(ctx context.Context, post wordpress.NewPost) (*wordpress.Post, error)
}

// Options controls one publishing run.
type Options struct {
	MaxItems       int // 0 means no cap
	DryRun         bool
	CategoryID     int // 0 selects the default category
	DefaultImageID int // featured image when the parish has none
}

// Summary reports what a run did.
type Summary struct {
	Processed int
	Success   int
	Skipped   int
	Failed    int
}

// PublishedPost is one entry of the published log.
type PublishedPost struct {
	Name        string `json:"name"`
	PostID      int    `json:"post_id"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Publisher drives rendering and posting for the whole dataset.
type Publisher struct {
	gen      IntroGenerator
	site     Site
	store    store.Store
	dataFile string
	opts     Options
	log      *zap.Logger

	// pause is replaced in tests so rate limiting does not sleep.
	pause func(ctx context.Context, d time.Duration)

	published map[string]PublishedPost
}

// NewPublisher builds a publisher over the dataset file. The store
// holds the published log that prevents duplicate posts.
func NewPublisher(gen IntroGenerator, site Site, st store.Store, cfg config.PipelineConfig, opts Options, log *zap.Logger) *Publisher {
	if opts.CategoryID == 0 {
		opts.CategoryID = defaultCategoryID
	}
	return &Publisher{
		gen:       gen,
		site:      site,
		store:     st,
		dataFile:  cfg.DataFile,
		opts:      opts,
		log:       log,
		pause:     sleepCtx,
		published: make(map[string]PublishedPost),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func publishDelay() time.Duration {
	return delayMin + rand.N(delayMax-delayMin)
}

// Run publishes every enriched parish that has not been posted yet.
func (p *Publisher) Run(ctx context.Context) (*Summary, error) {
	parishes, err := collect.ReadParishes(p.dataFile)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if !p.store.GetJSON(publishedLogKey, &p.published) {
		p.published = make(map[string]PublishedPost)
	}

	var candidates []model.Parish
	for _, parish := range parishes {
		if parish.EnrichmentStatus == "completed" {
			candidates = append(candidates, parish)
		}
	}
	p.log.Info("publishing started",
		zap.Int("parishes", len(parishes)),
		zap.Int("candidates", len(candidates)))

	summary := &Summary{}
	for _, parish := range candidates {
		if ctx.Err() != nil {
			break
		}
		if p.opts.MaxItems > 0 && summary.Processed >= p.opts.MaxItems {
			p.log.Info("max items reached", zap.Int("max", p.opts.MaxItems))
			break
		}
		p.publishOne(ctx, parish, summary)
		summary.Processed++
	}

	p.log.Info("publishing finished",
		zap.Int("processed", summary.Processed),
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (p *Publisher) publishOne(ctx context.Context, parish model.Parish, summary *Summary) {
	key := logKey(parish)
	if prev, ok := p.published[key]; ok {
		p.log.Info("already published",
			zap.String("name", parish.Name),
			zap.Int("post_id", prev.PostID))
		summary.Skipped++
		return
	}

	p.log.Info("publishing", zap.String("name", parish.Name))

	title := Title(parish)
	intro, err := p.gen.GenerateIntro(ctx, parish)
	if err != nil {
		p.log.Warn("intro generation failed, using fallback",
			zap.String("name", parish.Name), zap.Error(err))
		intro = gemini.FallbackIntro(parish)
	}
	content := RenderHTML(parish, intro)

	tags := parish.SEOTags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	tagIDs := make([]int, 0, len(tags))
	for _, tag := range tags {
		id, err := p.site.GetOrCreateTag(ctx, tag)
		if err != nil {
			p.log.Debug("tag lookup failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		tagIDs = append(tagIDs, id)
	}

	featured := 0
	if parish.ImageURL != "" {
		id, err := p.site.UploadImage(ctx, parish.ImageURL, fmt.Sprintf("church_%s.jpg", parish.Orgnum))
		if err != nil {
			p.log.Warn("image upload failed", zap.String("name", parish.Name), zap.Error(err))
		} else {
			featured = id
		}
	}
	if featured == 0 {
		featured = p.opts.DefaultImageID
	}

	if p.opts.DryRun {
		p.log.Info("would publish",
			zap.String("title", title),
			zap.Int("content_bytes", len(content)),
			zap.Int("tags", len(tagIDs)))
		summary.Success++
		return
	}

	p.pause(ctx, publishDelay())
	post, err := p.site.CreatePost(ctx, wordpress.NewPost{
		Title:         title,
		Content:       content,
		Status:        "draft",
		Categories:    []int{p.opts.CategoryID},
		Tags:          tagIDs,
		FeaturedMedia: featured,
	})
	if err != nil {
		p.log.Error("publishing failed", zap.String("name", parish.Name), zap.Error(err))
		summary.Failed++
		return
	}

	p.published[key] = PublishedPost{
		Name:        parish.Name,
		PostID:      post.ID,
		URL:         post.Link,
		PublishedAt: time.Now().Format(time.RFC3339),
	}
	if err := p.store.SetJSON(publishedLogKey, p.published); err != nil {
		p.log.Error("saving published log failed", zap.Error(err))
	}
	p.log.Info("published",
		zap.String("name", parish.Name),
		zap.Int("post_id", post.ID))
	summary.Success++
}

// logKey identifies a parish in the published log.
func logKey(p model.Parish) string {
	if p.Orgnum != "" {
		return p.Orgnum
	}
	return p.Name
}
