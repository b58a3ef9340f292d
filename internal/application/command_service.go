package application

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/input"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure CommandService implements the input port
var _ input.CommandService = (*CommandService)(nil)

// ErrPermissionDenied is user-facing: the caller is outside the send policy.
var ErrPermissionDenied = fmt.Errorf("you are not allowed to use this command")

// CommandService struct - Application service behind the command API: topic
// and custom self-posts plus the diary commands.
type CommandService struct {
	feed      output.FeedClient
	sessions  output.SessionManager
	generator output.TextGenerator
	images    output.ImageGenerator
	chatLog   output.ChatLogStore
	diary     *DiaryService

	personality string
	send        configs.Send
	imageConfig configs.Images
	policy      domain.PermissionPolicy

	now  func() time.Time
	rand *rand.Rand
}

// NewCommandService func - Creates the command service.
func NewCommandService(
	feed output.FeedClient,
	sessions output.SessionManager,
	generator output.TextGenerator,
	images output.ImageGenerator,
	chatLog output.ChatLogStore,
	diary *DiaryService,
	personality string,
	send configs.Send,
	imageConfig configs.Images,
) *CommandService {
	mode := domain.PermissionMode(send.PermissionMode)
	if send.PermissionMode == "" {
		mode = domain.PermissionBlacklist
	}
	return &CommandService{
		feed:        feed,
		sessions:    sessions,
		generator:   generator,
		images:      images,
		chatLog:     chatLog,
		diary:       diary,
		personality: personality,
		send:        send,
		imageConfig: imageConfig,
		policy:      domain.PermissionPolicy{Mode: mode, IDs: send.PermissionList},
		now:         time.Now,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Send generates and publishes a post about topic on behalf of callerID.
func (s *CommandService) Send(ctx context.Context, callerID, topic string) (string, error) {
	if !s.policy.Allowed(callerID) {
		return "", ErrPermissionDenied
	}

	text, err := s.generatePost(ctx, topic)
	if err != nil {
		return "", err
	}
	return s.publishWithImages(ctx, text)
}

// SendCustom publishes the latest private-chat message of the configured
// conversation as a post, verbatim.
func (s *CommandService) SendCustom(ctx context.Context, callerID string) (string, error) {
	if !s.policy.Allowed(callerID) {
		return "", ErrPermissionDenied
	}
	if s.send.CustomAccount == "" {
		return "", fmt.Errorf("no custom account configured")
	}

	message, err := s.chatLog.LatestPrivate(ctx, s.send.CustomAccount, s.send.CustomOnlySelf)
	if err != nil {
		return "", fmt.Errorf("reading private chat: %w", err)
	}
	if message == nil || strings.TrimSpace(message.Text) == "" {
		return "", fmt.Errorf("%w: no usable private message found", domain.ErrInsufficientData)
	}
	return s.publishWithImages(ctx, message.Text)
}

// DiaryGenerate builds a diary for date (empty = today).
func (s *CommandService) DiaryGenerate(ctx context.Context, callerID, date string) (*domain.DiaryEntry, error) {
	if !s.policy.Allowed(callerID) {
		return nil, ErrPermissionDenied
	}

	if date == "" {
		date = s.now().Format(domain.DateLayout)
	}
	normalized, err := domain.ParseDate(date, s.now())
	if err != nil {
		return nil, err
	}
	return s.diary.Generate(ctx, normalized)
}

// DiaryList renders a short listing of recent entries plus corpus stats.
func (s *CommandService) DiaryList(ctx context.Context, callerID string) (string, error) {
	if !s.policy.Allowed(callerID) {
		return "", ErrPermissionDenied
	}

	entries, err := s.diary.List(10)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "no diary entries yet", nil
	}
	stats, err := s.diary.Stats()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, e := range entries {
		published := " "
		if e.Published {
			published = "*"
		}
		fmt.Fprintf(&b, "%s #%d [%s]%s %s\n", e.Date, e.Seq, e.Style, published, summarize(e.Content, 40))
	}
	fmt.Fprintf(&b, "total %d entries, %d chars, avg %d, latest %s",
		stats.TotalCount, stats.TotalWords, stats.AvgWords, stats.LatestDate)
	return b.String(), nil
}

// DiaryView returns one stored entry; index 0 means the newest of the date.
func (s *CommandService) DiaryView(ctx context.Context, date string, index int) (*domain.DiaryEntry, error) {
	normalized, err := domain.ParseDate(date, s.now())
	if err != nil {
		return nil, err
	}
	entries, err := s.diary.Entries(normalized)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no diary for %s", normalized)
	}
	if index == 0 {
		return &entries[len(entries)-1], nil
	}
	for i := range entries {
		if entries[i].Seq == index {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no diary %s #%d", normalized, index)
}

// generatePost renders the send prompt, feeding in recent own posts so the
// model avoids repeating itself.
func (s *CommandService) generatePost(ctx context.Context, topic string) (string, error) {
	var history []string
	if s.send.HistoryNumber > 0 {
		posts, err := withAuthRetry(s.sessions, func() ([]domain.Post, error) {
			return s.feed.FetchOwnRecent(ctx, s.send.HistoryNumber)
		})
		if err != nil {
			// History is an enrichment, not a precondition.
			logrus.Warnf("Fetching post history failed: %v", err)
		} else {
			for _, p := range posts {
				if p.Content != "" {
					history = append(history, summarize(p.Content, 80))
				}
			}
		}
	}

	text, err := s.generator.Complete(ctx, sendPrompt(s.personality, s.now().Format(domain.DateTimeLayout), topic, history))
	if err != nil {
		return "", fmt.Errorf("%w: post generation: %v", domain.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty post body", domain.ErrGeneration)
	}
	return text, nil
}

// publishWithImages runs the attachment pipeline and publishes. Image
// failures degrade to a text-only post instead of failing the command.
func (s *CommandService) publishWithImages(ctx context.Context, text string) (string, error) {
	images := s.buildImages(ctx, text)

	tid, err := withAuthRetry(s.sessions, func() (string, error) {
		return s.feed.Publish(ctx, text, images)
	})
	if err != nil {
		return "", fmt.Errorf("publishing post: %w", err)
	}
	logrus.Infof("Published post %s (%d images)", tid, len(images))
	return tid, nil
}

// buildImages decides the image source per the configured mode and renders
// up to the clamped attachment count.
func (s *CommandService) buildImages(ctx context.Context, text string) [][]byte {
	if !s.imageConfig.Enabled || s.images == nil {
		return nil
	}

	useAI := true
	switch s.imageConfig.Mode {
	case "only_ai":
	case "only_emoji":
		useAI = false
	default: // random
		useAI = s.rand.Float64() < s.imageConfig.AIProbability
	}
	if !useAI {
		// The emoji sticker source lives in the host chat framework, which
		// this agent does not embed; emoji mode degrades to text-only.
		return nil
	}

	prompt, err := s.generator.Complete(ctx, imagePrompt(s.personality, text))
	if err != nil || strings.TrimSpace(prompt) == "" {
		logrus.Warnf("Image prompt generation failed, posting text only: %v", err)
		return nil
	}

	count := s.imageConfig.Number
	if count < 1 {
		count = 1
	}
	if count > 4 {
		count = 4
	}

	var images [][]byte
	for i := 0; i < count; i++ {
		image, err := s.images.GenerateImage(ctx, prompt)
		if err != nil {
			logrus.Warnf("Image generation %d/%d failed: %v", i+1, count, err)
			continue
		}
		images = append(images, image)
	}
	return images
}

// summarize truncates s to limit runes for log and listing lines.
func summarize(s string, limit int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
