package models

// Allowed forward moves. Cancelled is reachable from every non-terminal status.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed},
	OrderStatusConfirmed:  {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusReady, OrderStatusShipped},
	OrderStatusReady:      {OrderStatusDelivered, OrderStatusCompleted},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCompleted},
}

var orderStatusNextSteps = map[OrderStatus]string{
	OrderStatusPending:    "Your order is being reviewed. We'll start preparing it shortly.",
	OrderStatusConfirmed:  "Your order has been confirmed and is being prepared.",
	OrderStatusProcessing: "Your tyres are being prepared for collection/delivery.",
	OrderStatusReady:      "Your tyres are ready! You can collect them from our workshop.",
	OrderStatusShipped:    "Your order has been shipped and is on its way to you.",
	OrderStatusDelivered:  "Your order has been delivered. We hope you're happy with your tyres!",
	OrderStatusCompleted:  "Your order is complete. Thank you for shopping with us!",
	OrderStatusCancelled:  "This order has been cancelled. Please contact us if you have questions.",
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusNextSteps[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStep is the customer-facing hint shown with a status report.
func (s OrderStatus) NextStep() string {
	if step, ok := orderStatusNextSteps[s]; ok {
		return step
	}
	return "Please contact us for more details."
}
