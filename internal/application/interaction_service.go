package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InteractionService struct - Application service running one monitoring
// cycle: browse target feeds, like/comment behind probability gates, reply
// to comments under the bot's own posts. Every decision is funneled through
// the dedup ledger so nothing is handled twice.
type InteractionService struct {
	feed        output.FeedClient
	sessions    output.SessionManager
	generator   output.TextGenerator
	impressions output.ImpressionStore
	ledger      *Ledger

	personality string
	config      configs.Monitor
	silent      domain.SilentWindows
	readPolicy  domain.PermissionPolicy

	now  func() time.Time
	rand *rand.Rand
}

// NewInteractionService func - Creates the interaction engine. The silent
// hours string is parsed here; a malformed value is a startup error.
func NewInteractionService(
	feed output.FeedClient,
	sessions output.SessionManager,
	generator output.TextGenerator,
	impressions output.ImpressionStore,
	ledger *Ledger,
	personality string,
	config configs.Monitor,
) (*InteractionService, error) {
	silent, err := domain.ParseSilentWindows(config.SilentHours)
	if err != nil {
		return nil, fmt.Errorf("parsing silent hours: %w", err)
	}

	// Whitelist mode allows only the monitored accounts themselves; blacklist
	// mode reads everything except the explicit exclude list.
	readMode := domain.PermissionMode(config.ReadMode)
	readList := config.ExcludeUsers
	if config.ReadMode == "" {
		readMode = domain.PermissionBlacklist
	}
	if readMode == domain.PermissionWhitelist {
		readList = config.TargetUsers
	}

	return &InteractionService{
		feed:        feed,
		sessions:    sessions,
		generator:   generator,
		impressions: impressions,
		ledger:      ledger,
		personality: personality,
		config:      config,
		silent:      silent,
		readPolicy:  domain.PermissionPolicy{Mode: readMode, IDs: readList},
		now:         time.Now,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// RunCycle executes one monitoring pass over all configured targets plus the
// bot's own recent posts. Item-level failures are logged and skipped; only
// auth exhaustion and persist failures abort the cycle.
func (s *InteractionService) RunCycle(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Debug("Monitoring disabled, skipping cycle")
		return nil
	}

	trace := uuid.NewString()
	now := s.now()

	allowLike, allowComment := s.silentGates(now)
	if !allowLike && !allowComment && !s.config.EnableAutoReply {
		logrus.Infof("[%s] Inside silent window, skipping monitoring cycle", trace)
		return nil
	}

	logrus.Infof("[%s] Monitoring cycle started (like=%v comment=%v)", trace, allowLike, allowComment)

	selfUin := ""
	if s.config.EnableAutoReply {
		session, err := s.sessions.Acquire(ctx)
		if err != nil {
			return err
		}
		selfUin = session.Uin()
		if err := s.replyOwnComments(ctx, trace, selfUin); err != nil {
			return err
		}
	}

	// Replies to the bot's comments on other people's posts are answered only
	// outside silent windows.
	allowReply := s.config.EnableAutoReply && !s.silent.Active(now)

	for _, target := range s.monitorTargets() {
		if err := s.browseTarget(ctx, trace, target, selfUin, allowLike, allowComment, allowReply); err != nil {
			return err
		}
	}

	logrus.Infof("[%s] Monitoring cycle finished", trace)
	return nil
}

// silentGates evaluates the silent windows once per cycle.
func (s *InteractionService) silentGates(now time.Time) (allowLike, allowComment bool) {
	if !s.silent.Active(now) {
		return true, true
	}
	return s.config.LikeDuringSilent, s.config.CommentDuringSilent
}

// monitorTargets returns the accounts whose feeds this cycle reads.
func (s *InteractionService) monitorTargets() []string {
	return s.config.TargetUsers
}

// browseTarget handles one target account's recent posts.
func (s *InteractionService) browseTarget(ctx context.Context, trace, target, selfUin string, allowLike, allowComment, allowReply bool) error {
	posts, err := withAuthRetry(s.sessions, func() ([]domain.Post, error) {
		return s.feed.FetchFeed(ctx, target, s.fetchCount())
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return err
		}
		logrus.Warnf("[%s] Fetching feed of %s failed: %v", trace, target, err)
		return nil
	}

	for i := range posts {
		if err := s.handlePost(ctx, trace, &posts[i], allowLike, allowComment); err != nil {
			return err
		}
		if allowReply {
			if err := s.replyToBotComments(ctx, trace, selfUin, &posts[i]); err != nil {
				return err
			}
		}
		s.interItemDelay(ctx)
	}
	return nil
}

// replyToBotComments answers comments on someone else's post that target one
// of the bot's own comments there.
func (s *InteractionService) replyToBotComments(ctx context.Context, trace, selfUin string, post *domain.Post) error {
	byID := make(map[string]*domain.Comment, len(post.Comments))
	for i := range post.Comments {
		byID[post.Comments[i].ID] = &post.Comments[i]
	}

	for i := range post.Comments {
		comment := &post.Comments[i]
		if comment.AuthorID == selfUin || !comment.IsReply() {
			continue
		}
		parent, ok := byID[comment.ReplyToID]
		if !ok || parent.AuthorID != selfUin {
			continue
		}
		if s.ledger.SeenComment(comment.ID) {
			continue
		}
		if err := s.replyComment(ctx, trace, post, comment); err != nil {
			return err
		}
		s.interItemDelay(ctx)
	}
	return nil
}

// handlePost runs the per-post decision pipeline. The ledger mark is written
// only when an action fired or every enabled gate was drawn; a post whose
// actions were all suppressed by a silent window stays unmarked for the next
// eligible cycle.
func (s *InteractionService) handlePost(ctx context.Context, trace string, post *domain.Post, allowLike, allowComment bool) error {
	if !s.readPolicy.Allowed(post.AuthorID) {
		// Excluded by policy, not processed: no ledger mark.
		logrus.Debugf("[%s] Post %s of %s excluded by read policy", trace, post.ID, post.AuthorID)
		return nil
	}
	if s.ledger.SeenPost(post.ID) {
		return nil
	}
	if !allowLike && !allowComment {
		// Fully suppressed: leave unmarked so the post is revisited.
		return nil
	}

	decision := domain.InteractionDecision{
		ShouldLike:    allowLike && s.draw(s.config.LikePossibility),
		ShouldComment: allowComment && s.draw(s.config.CommentPossibility),
	}

	if decision.ShouldLike {
		if err := s.likePost(ctx, trace, post); err != nil {
			return err
		}
	}
	if decision.ShouldComment {
		if err := s.commentPost(ctx, trace, post); err != nil {
			return err
		}
	}

	// Partially suppressed posts are only marked when the enabled subset
	// actually ran its gates; a both-gates-available evaluation counts as
	// handled even if both draws waived.
	if allowLike && allowComment || decision.ShouldLike || decision.ShouldComment {
		if _, err := s.ledger.MarkPostIfNew(post.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *InteractionService) likePost(ctx context.Context, trace string, post *domain.Post) error {
	_, err := withAuthRetry(s.sessions, func() (struct{}, error) {
		return struct{}{}, s.feed.Like(ctx, post.AuthorID, post.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return err
		}
		logrus.Warnf("[%s] Liking post %s failed: %v", trace, post.ID, err)
		return nil
	}
	logrus.Infof("[%s] Liked post %s of %s", trace, post.ID, post.AuthorName)
	return nil
}

func (s *InteractionService) commentPost(ctx context.Context, trace string, post *domain.Post) error {
	text, err := s.generateComment(ctx, post)
	if err != nil {
		logrus.Warnf("[%s] Generating comment for post %s failed: %v", trace, post.ID, err)
		return nil
	}

	_, err = withAuthRetry(s.sessions, func() (struct{}, error) {
		return struct{}{}, s.feed.Comment(ctx, post.AuthorID, post.ID, text)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return err
		}
		logrus.Warnf("[%s] Commenting on post %s failed: %v", trace, post.ID, err)
		return nil
	}
	logrus.Infof("[%s] Commented on post %s of %s: %s", trace, post.ID, post.AuthorName, text)
	return nil
}

// generateComment renders the prompt (repost variant when the post is a
// share) and runs the text generator.
func (s *InteractionService) generateComment(ctx context.Context, post *domain.Post) (string, error) {
	now := s.now().Format(domain.DateTimeLayout)
	created := post.CreatedAt.Format(domain.DateTimeLayout)
	impression := s.impressions.Impression(post.AuthorID)

	var prompt string
	if post.IsRepost() {
		prompt = repostPrompt(s.personality, post.AuthorName, created, post.Repost, post.Content, impression, now)
	} else {
		prompt = commentPrompt(s.personality, post.AuthorName, created, post.Content, impression, now)
	}

	text, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty comment", domain.ErrGeneration)
	}
	return text, nil
}

// replyOwnComments walks the bot's own recent posts and answers fresh
// comments by others with one flat mention reply each.
func (s *InteractionService) replyOwnComments(ctx context.Context, trace, selfUin string) error {
	posts, err := withAuthRetry(s.sessions, func() ([]domain.Post, error) {
		return s.feed.FetchOwnRecent(ctx, s.selfFetchCount())
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return err
		}
		logrus.Warnf("[%s] Fetching own posts failed: %v", trace, err)
		return nil
	}

	for i := range posts {
		post := &posts[i]
		for j := range post.Comments {
			comment := &post.Comments[j]
			if comment.AuthorID == selfUin {
				continue
			}
			if s.ledger.SeenComment(comment.ID) {
				continue
			}
			if err := s.replyComment(ctx, trace, post, comment); err != nil {
				return err
			}
			s.interItemDelay(ctx)
		}
	}
	return nil
}

// replyComment generates and sends one reply; the comment is marked handled
// only after the platform call succeeded.
func (s *InteractionService) replyComment(ctx context.Context, trace string, post *domain.Post, comment *domain.Comment) error {
	now := s.now().Format(domain.DateTimeLayout)
	created := comment.CreatedAt.Format(domain.DateTimeLayout)
	impression := s.impressions.Impression(comment.AuthorID)

	text, err := s.generator.Complete(ctx, replyPrompt(s.personality, comment.AuthorName, created, post.Content, comment.Content, impression, now))
	if err != nil {
		logrus.Warnf("[%s] Generating reply for comment %s failed: %v", trace, comment.ID, err)
		return nil
	}
	if text == "" {
		logrus.Warnf("[%s] Empty reply for comment %s, skipping", trace, comment.ID)
		return nil
	}

	_, err = withAuthRetry(s.sessions, func() (struct{}, error) {
		return struct{}{}, s.feed.Reply(ctx, post.AuthorID, post.ID, comment.ID, comment.AuthorName, text)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return err
		}
		logrus.Warnf("[%s] Replying to comment %s failed: %v", trace, comment.ID, err)
		return nil
	}

	logrus.Infof("[%s] Replied to %s on post %s: %s", trace, comment.AuthorName, post.ID, text)
	if _, err := s.ledger.MarkCommentIfNew(comment.ID); err != nil {
		return err
	}
	return nil
}

// withAuthRetry runs call; when the platform rejects the session it
// invalidates the cached one and retries the pending call exactly once.
func withAuthRetry[T any](sessions output.SessionManager, call func() (T, error)) (T, error) {
	result, err := call()
	if err != nil && errors.Is(err, domain.ErrUnauthenticated) {
		logrus.Warn("Session rejected, re-acquiring and retrying once")
		sessions.Invalidate()
		return call()
	}
	return result, err
}

// draw samples one probability gate.
func (s *InteractionService) draw(possibility float64) bool {
	if possibility >= 1 {
		return true
	}
	if possibility <= 0 {
		return false
	}
	return s.rand.Float64() < possibility
}

func (s *InteractionService) fetchCount() int {
	if s.config.FetchCount > 0 {
		return s.config.FetchCount
	}
	return 5
}

func (s *InteractionService) selfFetchCount() int {
	if s.config.SelfFetchCount > 0 {
		return s.config.SelfFetchCount
	}
	return 5
}

// interItemDelay sleeps a short randomized interval between platform
// actions. Zero bounds disable it, which tests rely on.
func (s *InteractionService) interItemDelay(ctx context.Context) {
	min, max := s.config.ItemDelayMinMs, s.config.ItemDelayMaxMs
	if max <= 0 || max < min {
		return
	}
	span := max - min
	delay := time.Duration(min) * time.Millisecond
	if span > 0 {
		delay += time.Duration(s.rand.Intn(span)) * time.Millisecond
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
