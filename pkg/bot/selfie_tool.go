package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"selfiebot/pkg/tools"
)

const SelfieToolName = "bot_selfie_generation"

const selfieAckTemplate = "[自拍生成任务已启动]（穿搭：%s）\n" +
	"自拍照正在生成中，通常需要 10-30 秒，生成完成后会自动发送给用户。\n" +
	"请用你的人设告诉用户：正在拍照，马上就好，完成后会自动发送。"

// SelfieTool lets the chat model start a selfie. It answers at once and delivers
// the picture to the conversation when generation finishes.
type SelfieTool struct {
	h *Handler
}

func NewSelfieTool(h *Handler) *SelfieTool {
	return &SelfieTool{h: h}
}

func (t *SelfieTool) Name() string {
	return SelfieToolName
}

func (t *SelfieTool) Description() string {
	return "Take a selfie of the bot and send it to the user. Use it when the user asks for a selfie, a photo of you, or what you look like or wear today. " +
		"The picture is delivered automatically after 10-30 seconds."
}

func (t *SelfieTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"outfit": {
				Type:        "string",
				Description: "Outfit to wear in the selfie. Leave empty to wear today's outfit.",
			},
		},
	}
}

func (t *SelfieTool) Execute(ctx context.Context, params map[string]any, toolCtx *tools.ToolContext) (tools.Result, error) {
	if toolCtx == nil || toolCtx.Responder == nil {
		return tools.Result{}, fmt.Errorf("%s needs a conversation to deliver the selfie", SelfieToolName)
	}

	h := t.h
	if allowed, msg := h.allow(ctx, toolCtx.UserID); !allowed {
		return tools.Result{Success: false, Error: msg}, nil
	}

	outfit, _ := params["outfit"].(string)
	outfit = h.resolveOutfit(ctx, strings.TrimSpace(outfit), toolCtx.Origin, true)
	log.Printf("[Tool] Starting selfie task (outfit=%q, origin=%s)", outfit, toolCtx.Origin)

	responder := toolCtx.Responder
	started := h.spawn("selfie", func(ctx context.Context) {
		locator, err := h.generateSelfie(ctx, outfit, toolCtx.Origin, false)
		if err != nil {
			log.Printf("[Tool] Selfie task failed: %v", err)
			if sendErr := responder.SendText(ctx, commandFailurePrefix+err.Error()); sendErr != nil {
				log.Printf("[Tool] Failed to send failure message: %v", sendErr)
			}
			return
		}
		if err := responder.SendImage(ctx, locator); err != nil {
			log.Printf("[Tool] Failed to deliver selfie: %v", err)
			return
		}
		log.Printf("[Tool] Selfie delivered to %s", toolCtx.Origin)
	}, func(ctx context.Context, r any) {
		if err := responder.SendText(ctx, fmt.Sprintf("%s%v", taskFailurePrefix, r)); err != nil {
			log.Printf("[Tool] Failed to send failure message: %v", err)
		}
	})
	if !started {
		return tools.Result{Success: false, Error: "bot is shutting down"}, nil
	}

	return tools.Result{Success: true, Data: fmt.Sprintf(selfieAckTemplate, outfit)}, nil
}
