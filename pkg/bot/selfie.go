package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"selfiebot/pkg/schedule"
	"selfiebot/pkg/seedream"
)

const (
	fallbackOutfit       = "休闲装"
	generatingNotice     = "🤳 正在生成自拍..."
	commandFailurePrefix = "❌ 生成自拍失败："
	taskFailurePrefix    = "❌ 自拍生成失败："
	unknownUser          = "unknown"
)

const referencePromptTemplate = "把参考图片中的二次元人物形象改为一张自拍照片，可以是拿着手机对镜子自拍的视角，也可以是手机摄像头的视角，" +
	"请注意一定要保持参考图片中的风格，且自拍照片中的人物形象（脸部细节、身材细节）务必和参考图片中的形象保持一致。" +
	"背景可以根据下述的详细内容自由发挥，请注意不能是空白背景，请尽可能自由发挥，使整张图片的人物和背景比较协调。" +
	"如下是详细的穿衣风格内容，请遵守上述规则，在仅改变人物动作和衣服风格的条件下进行改图：%s"

const plainPromptTemplate = "生成一张Bot的自拍照片，穿着：%s。风格为二次元动漫风格，线条清晰，色彩鲜明，光线良好，背景简洁。"

// HandleSelfieCommand serves the user-facing selfie command: throttle notice, or a
// progress notice followed by the image or a failure message.
func (h *Handler) HandleSelfieCommand(ctx context.Context, conv Conversation, outfit string) {
	if allowed, msg := h.allow(ctx, conv.UserID()); !allowed {
		h.reply(ctx, conv, msg)
		return
	}

	h.reply(ctx, conv, generatingNotice)

	locator, err := h.generateSelfie(ctx, outfit, conv.Origin(), h.settings.Persona().EnableAutoOutfit)
	if err != nil {
		log.Printf("[Selfie] Command for %s failed: %v", conv.UserID(), err)
		h.reply(ctx, conv, commandFailurePrefix+err.Error())
		return
	}

	if err := conv.SendImage(ctx, locator); err != nil {
		log.Printf("[Selfie] Failed to deliver image to %s: %v", conv.Origin(), err)
	}
}

// allow applies the per-user rate limit when it is enabled.
func (h *Handler) allow(ctx context.Context, userID string) (bool, string) {
	if !h.settings.RateLimit().Enabled {
		return true, ""
	}
	if userID == "" {
		userID = unknownUser
	}
	return h.limiter.CheckAndConsume(ctx, userID)
}

func (h *Handler) reply(ctx context.Context, conv Conversation, text string) {
	if err := conv.SendText(ctx, text); err != nil {
		log.Printf("[Selfie] Failed to send message to %s: %v", conv.Origin(), err)
	}
}

// generateSelfie runs one generation: outfit, reference, prompt, API call.
// It returns the image locator (URL or local path).
func (h *Handler) generateSelfie(ctx context.Context, outfit, origin string, useSchedule bool) (string, error) {
	if h.images == nil {
		return "", fmt.Errorf("image generation is not configured")
	}

	outfit = h.resolveOutfit(ctx, outfit, origin, useSchedule)
	reference := h.references.Resolve()
	prompt := buildPrompt(outfit, reference != "")

	resolution := h.settings.API().DefaultSize
	if resolution == "" {
		resolution = h.settings.ImageGeneration().Resolution
	}

	log.Printf("[Selfie] Generating (outfit=%q, reference=%t, resolution=%s)", outfit, reference != "", resolution)
	return h.images.GenerateImage(ctx, seedream.Request{
		Prompt:         prompt,
		ReferenceImage: reference,
		Resolution:     resolution,
	})
}

func buildPrompt(outfit string, withReference bool) string {
	if withReference {
		return fmt.Sprintf(referencePromptTemplate, outfit)
	}
	return fmt.Sprintf(plainPromptTemplate, outfit)
}

// resolveOutfit picks the outfit: explicit, then today's cached one, then the
// scheduler, then the fallback. Only scheduler results are cached.
func (h *Handler) resolveOutfit(ctx context.Context, explicit, origin string, useSchedule bool) string {
	if outfit := strings.TrimSpace(explicit); outfit != "" {
		return outfit
	}
	if !useSchedule {
		return fallbackOutfit
	}

	today := h.now()
	date := today.Format(schedule.DateLayout)

	h.outfitMu.Lock()
	if h.outfitDate == date && h.outfit != "" {
		cached := h.outfit
		h.outfitMu.Unlock()
		return cached
	}
	h.outfitMu.Unlock()

	if h.scheduler == nil {
		return fallbackOutfit
	}

	view, err := h.scheduler.TodaySchedule(ctx, today, origin)
	if err != nil {
		log.Printf("[Selfie] Schedule lookup failed, using default outfit: %v", err)
		return fallbackOutfit
	}
	if view == nil || strings.TrimSpace(view.Outfit) == "" {
		return fallbackOutfit
	}

	outfit := strings.TrimSpace(view.Outfit)
	h.outfitMu.Lock()
	h.outfitDate = date
	h.outfit = outfit
	h.outfitMu.Unlock()

	log.Printf("[Selfie] Outfit for %s from schedule: %s", date, outfit)
	return outfit
}
