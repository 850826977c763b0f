package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/matraxtyres/tyre_assistant/workflow"
	"github.com/sirupsen/logrus"
)

const orderErrorReply = "I'm sorry, there was an error processing your order. Please try again."

func (r *Router) handleDefault(ctx context.Context, t turn) (Reply, error) {
	query := RetrievalQuery(t.message, t.history)
	results := r.retriever.Search(ctx, query, r.limit)
	text, err := r.composer.Compose(ctx, Composition{
		Instruction: customerInstruction,
		Message:     t.message,
		History:     t.history,
		Retrieval:   results,
		Guidance:    customerGuidance,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("compose reply: %w", err)
	}
	return Reply{Text: text, Agent: AgentCustomer}, nil
}

func (r *Router) handleSizeSelection(ctx context.Context, t turn) (Reply, error) {
	size, ok := NormalizeTyreSize(models.StringValue(t.slots.SelectedSize))
	if !ok {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"field": "Router",
				"size":  models.StringValue(t.slots.SelectedSize),
			}).Warn("no usable size extracted, using default handler")
		}
		return r.handleDefault(ctx, t)
	}

	tyres, err := r.inventory.ByExactSize(ctx, size)
	if err != nil {
		return Reply{}, fmt.Errorf("stock by size: %w", err)
	}
	if len(tyres) == 0 {
		return Reply{
			Text:  fmt.Sprintf("I'm sorry, we don't currently have any tyres in stock for size **%s**. Would you like to check a different size?", size),
			Agent: AgentInventory,
		}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Car: %s %s %s\n", slotOr(t.slots.CarBrand, "Unknown"), slotOr(t.slots.CarModel, "Unknown"), models.StringValue(t.slots.CarYear))
	fmt.Fprintf(&sb, "Selected size: %s\n\nAvailable tyres from our inventory:", size)
	for _, tyre := range tyres {
		fmt.Fprintf(&sb, "\n- %s %s | Size: %s | Type: %s | Price: %s",
			tyre.BrandName, tyre.Model, tyre.Size, tyre.Type, models.PriceLabel(tyre.Price))
	}

	text, err := r.composer.Compose(ctx, Composition{
		Instruction:    recommendationInstruction,
		Message:        t.message,
		History:        t.history,
		WorkflowResult: sb.String(),
		Guidance:       recommendationGuidance,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("compose recommendation: %w", err)
	}
	return Reply{Text: text, Agent: AgentRecommendation}, nil
}

// handleClarification asks for what an order still lacks. It never fills the gaps itself.
func (r *Router) handleClarification(ctx context.Context, t turn) (Reply, error) {
	missing := missingDetails(t.slots)

	var sb strings.Builder
	sb.WriteString("The customer wants to place an order.\n\nKnown details:\n")
	fmt.Fprintf(&sb, "- Customer name: %s\n", slotOr(t.slots.CustomerName, "NOT PROVIDED"))
	fmt.Fprintf(&sb, "- Selected tyre: %s\n", strings.TrimSpace(slotOr(t.slots.SelectedTyreBrand, "NOT SPECIFIED")+" "+models.StringValue(t.slots.SelectedTyreModel)))
	if t.slots.Quantity != nil && *t.slots.Quantity > 0 {
		fmt.Fprintf(&sb, "- Quantity: %d\n", *t.slots.Quantity)
	} else {
		sb.WriteString("- Quantity: NOT SPECIFIED\n")
	}
	fmt.Fprintf(&sb, "- Tyre size: %s\n\n", slotOr(t.slots.SelectedSize, "NOT SPECIFIED"))
	if len(missing) > 0 {
		fmt.Fprintf(&sb, "We still need: %s.", strings.Join(missing, ", "))
	} else {
		sb.WriteString("We still need: confirmation to proceed.")
	}

	text, err := r.composer.Compose(ctx, Composition{
		Instruction:    clarificationInstruction,
		Message:        t.message,
		History:        t.history,
		WorkflowResult: sb.String(),
		Guidance:       clarificationGuidance,
	})
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"field": "Router"}).Warn("clarification generation failed, using template: " + err.Error())
		}
		return Reply{Text: clarificationTemplate(missing), Agent: AgentCustomer}, nil
	}
	return Reply{Text: text, Agent: AgentCustomer}, nil
}

func (r *Router) handleOrderPlacement(ctx context.Context, t turn) (Reply, error) {
	brand := models.StringValue(t.slots.SelectedTyreBrand)
	model := models.StringValue(t.slots.SelectedTyreModel)
	size, _ := NormalizeTyreSize(models.StringValue(t.slots.SelectedSize))
	quantity := *t.slots.Quantity
	customer := strings.TrimSpace(models.StringValue(t.slots.CustomerName))

	tyre, err := r.inventory.FindForOrder(ctx, brand, model, size)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return Reply{
			Text:  fmt.Sprintf("I couldn't find **%s** in our system. Could you double-check the tyre you'd like to order?", strings.TrimSpace(brand+" "+model)),
			Agent: AgentOrder,
		}, nil
	}
	if err != nil {
		config.LogError(r.logger, "Router", "handleOrderPlacement", "resolve tyre", brand, err)
		return Reply{Text: orderErrorReply, Agent: AgentOrder}, nil
	}
	if tyre.Stock < quantity {
		return Reply{Text: shortStockReply(*tyre, tyre.Stock, quantity), Agent: AgentOrder}, nil
	}

	result, err := r.orders.Create(ctx, workflow.CreateOrderInput{
		CustomerName: customer,
		Items:        []workflow.OrderLineInput{{TyreId: tyre.ID, Quantity: quantity}},
	})
	if err != nil {
		var stockErr *workflow.InsufficientStockError
		if errors.As(err, &stockErr) {
			return Reply{Text: shortStockReply(*tyre, stockErr.Available, quantity), Agent: AgentOrder}, nil
		}
		config.LogError(r.logger, "Router", "handleOrderPlacement", "create order", tyre.ID, err)
		return Reply{Text: orderErrorReply, Agent: AgentOrder}, nil
	}

	text := fmt.Sprintf("🎉 **Order Confirmed!**\n\n"+
		"• **Order Code:** `%s`\n"+
		"• **Status:** %s\n"+
		"• **Customer:** %s\n"+
		"• **Tyre:** %s %s (%s)\n"+
		"• **Quantity:** %d\n"+
		"• **Unit Price:** %s\n"+
		"• **Total:** %s\n\n"+
		"Thank you for shopping with Matrax Tyres! 😊\n"+
		"Please quote your order code **%s** when collecting your tyres.\n"+
		"You can check your order status anytime by providing your order code.",
		result.OrderCode, result.Status, customer,
		tyre.BrandName, tyre.Model, tyre.Size,
		quantity, models.PriceLabel(tyre.Price), models.PriceLabel(result.Total),
		result.OrderCode)
	return Reply{Text: text, Agent: AgentOrder, OrderCode: result.OrderCode}, nil
}

func (r *Router) handleOrderStatus(ctx context.Context, t turn) (Reply, error) {
	orderId, ok := models.ParseOrderCode(t.message)
	if !ok {
		for i := len(t.history) - 1; i >= 0; i-- {
			if orderId, ok = models.ParseOrderCode(t.history[i].Text); ok {
				break
			}
		}
	}
	if !ok {
		return Reply{
			Text:  "Could you please provide your order code? It looks like **MTX-XXXXX** (e.g. MTX-00001). 😊",
			Agent: AgentOrder,
		}, nil
	}

	code := models.FormatOrderCode(orderId)
	order, err := r.orders.Get(ctx, orderId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return Reply{
			Text:  fmt.Sprintf("I couldn't find an order with code **%s**. Please double-check the code and try again.", code),
			Agent: AgentOrder,
		}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("load order %s: %w", code, err)
	}

	var items strings.Builder
	for i, line := range order.Items {
		if i > 0 {
			items.WriteString("\n")
		}
		fmt.Fprintf(&items, "  • %s x%d — %s", line.TyreName, line.Quantity, models.PriceLabel(line.LineTotal()))
	}
	text := fmt.Sprintf("📋 **Order Status: %s**\n\n"+
		"• **Status:** %s\n"+
		"• **Customer:** %s\n"+
		"• **Items:**\n%s\n"+
		"• **Total:** %s\n\n"+
		"**Next steps:** %s\n\n"+
		"Is there anything else I can help you with? 😊",
		code, order.Status, order.CustomerName, items.String(),
		models.PriceLabel(order.TotalAmount), order.Status.NextStep())
	return Reply{Text: text, Agent: AgentOrder, OrderCode: code}, nil
}

func missingDetails(s models.ExtractedSlots) []string {
	var missing []string
	if strings.TrimSpace(models.StringValue(s.CustomerName)) == "" {
		missing = append(missing, "your full name")
	}
	if s.Quantity == nil || *s.Quantity < 1 {
		missing = append(missing, "how many tyres you need")
	}
	if strings.TrimSpace(models.StringValue(s.SelectedTyreBrand)) == "" {
		missing = append(missing, "which tyre you'd like")
	}
	return missing
}

func clarificationTemplate(missing []string) string {
	if len(missing) == 0 {
		return "Great! Shall I go ahead and place this order for you?"
	}
	return fmt.Sprintf("Happy to help with your order! 😊 Could you please tell me %s?", joinWithAnd(missing))
}

func shortStockReply(tyre models.TyreView, available, requested int) string {
	if available <= 0 {
		return fmt.Sprintf("Sorry, **%s %s** (%s) is out of stock right now. Would you like me to suggest an alternative tyre in the same size?",
			tyre.BrandName, tyre.Model, tyre.Size)
	}
	return fmt.Sprintf("Sorry, we only have **%d** units of %s %s in stock, but you need %d. Would you like to order %d instead, or choose a different tyre?",
		available, tyre.BrandName, tyre.Model, requested, available)
}

func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func slotOr(s *string, fallback string) string {
	if v := strings.TrimSpace(models.StringValue(s)); v != "" {
		return v
	}
	return fallback
}
