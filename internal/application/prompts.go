package application

import (
	"fmt"
	"strings"

	"qzone-agent/internal/domain"
)

// Prompt builders for every generation call the agent makes. All of them
// instruct the model to answer with the bare body text, since the output is
// published verbatim.

const bareOutputRule = "Answer with the body text only: no prefixes, no quotes, no brackets, no emoji shortcodes, no @mentions."

// commentPrompt asks for a comment on a friend's plain post.
func commentPrompt(personality, targetName, createdTime, content, impression, now string) string {
	return fmt.Sprintf(
		"You are '%s'. You are browsing the feed of your friend '%s' and see a post they published at '%s': '%s'. "+
			"It is now '%s'. Your impression of '%s' is: '%s'; weave it in only if it relates to the post, otherwise ignore it. "+
			"Write one short, low-key comment. %s",
		personality, targetName, createdTime, content, now, targetName, impression, bareOutputRule)
}

// repostPrompt is the comment prompt variant for shared posts, carrying both
// the original content and the friend's share remark.
func repostPrompt(personality, targetName, createdTime, repostContent, remark, impression, now string) string {
	return fmt.Sprintf(
		"You are '%s'. You are browsing the feed of your friend '%s'. At '%s' they shared a post whose original content is '%s', "+
			"adding the remark '%s'. It is now '%s'. Your impression of '%s' is: '%s'; weave it in only if relevant, otherwise ignore it. "+
			"Write one short, low-key comment. %s",
		personality, targetName, createdTime, repostContent, remark, now, targetName, impression, bareOutputRule)
}

// replyPrompt asks for an answer to a comment under the bot's own post.
func replyPrompt(personality, nickname, commentTime, postContent, commentContent, impression, now string) string {
	return fmt.Sprintf(
		"You are '%s'. Your friend '%s' commented at '%s' on your post '%s'. Their comment: '%s'. "+
			"It is now '%s'. Your impression of this friend is: '%s'; weave it in only if relevant, otherwise ignore it. "+
			"Write one short, low-key reply. %s",
		personality, nickname, commentTime, postContent, commentContent, impression, now, bareOutputRule)
}

// sendPrompt asks for a fresh self-post. Recent post history is included so
// the model does not repeat itself.
func sendPrompt(personality, now, topic string, history []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are '%s'. It is now '%s' and you want to publish a post", personality, now)
	if topic != "" {
		fmt.Fprintf(&b, " about '%s'", topic)
	}
	b.WriteString(" on your feed. Keep it plain and personal, no exaggerated rhetoric; kaomoji are fine in moderation. ")
	if len(history) > 0 {
		b.WriteString("Your recent posts, newest first, were:\n")
		for i, h := range history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
		b.WriteString("Do not repeat their topics or phrasing. ")
	}
	b.WriteString(bareOutputRule)
	return b.String()
}

// imagePrompt asks for an image-generation prompt matching a post body.
func imagePrompt(personality, message string) string {
	return fmt.Sprintf(
		"Compose an image-generation prompt for a picture accompanying this feed post. Poster persona: '%s'. Post content: '%s'. "+
			"Answer with the image prompt only, nothing else.",
		personality, message)
}

// decidePrompt is the scheduler's yes/no gate: given the persona's current
// activity, would they do this now?
func decidePrompt(personality, activity, action string) string {
	return fmt.Sprintf(
		"You are '%s'. Right now you are %s. Would you %s at this moment? Answer with exactly one word: yes or no.",
		personality, activity, action)
}

// diaryPrompt renders the style-specific diary request over a message
// timeline. The custom style substitutes the operator-supplied template.
func diaryPrompt(style domain.DiaryStyle, customTemplate, personality, date, timeline string, minWords, maxWords int) string {
	targetLength := fmt.Sprintf("%d-%d", minWords, maxWords)

	switch style {
	case domain.DiaryStyleCustom:
		if customTemplate != "" {
			replacer := strings.NewReplacer(
				"{date}", date,
				"{timeline}", timeline,
				"{target_length}", targetLength,
				"{personality}", personality,
				"{style}", string(style),
			)
			return replacer.Replace(customTemplate)
		}
		fallthrough
	case domain.DiaryStyleSocial:
		return fmt.Sprintf(
			"You are '%s'. Below is what happened in your chats on %s:\n%s\n"+
				"Write a feed-post style recap of your day in first person, %s words, casual tone. %s",
			personality, date, timeline, targetLength, bareOutputRule)
	default:
		return fmt.Sprintf(
			"You are '%s'. Below is what happened in your chats on %s:\n%s\n"+
				"Write a first-person diary entry for the day, %s words. Reflect on what happened and how it felt; "+
				"do not enumerate the messages. %s",
			personality, date, timeline, targetLength, bareOutputRule)
	}
}

// renderTimeline flattens chat messages into the line format diary prompts
// consume.
func renderTimeline(messages []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.Format(domain.ClockLayout), m.Sender, m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// isYes interprets the decide gate's answer leniently: anything that does
// not clearly start with yes counts as no.
func isYes(answer string) bool {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	return normalized == "y" || strings.HasPrefix(normalized, "yes")
}
