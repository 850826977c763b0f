package models

import "testing"

func TestOrderCodeRoundTrip(t *testing.T) {
	if got := FormatOrderCode(1); got != "MTX-00001" {
		t.Fatalf("FormatOrderCode(1) = %q", got)
	}
	if got := FormatOrderCode(123456); got != "MTX-123456" {
		t.Fatalf("FormatOrderCode(123456) = %q", got)
	}

	cases := []struct {
		text string
		id   int
		ok   bool
	}{
		{"MTX-00001", 1, true},
		{"what's the status of mtx-00042?", 42, true},
		{"order MTX 7 please", 7, true},
		{"mts00012", 12, true},
		{"MTX-00000", 0, false},
		{"my order number is 12", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		id, ok := ParseOrderCode(tc.text)
		if id != tc.id || ok != tc.ok {
			t.Fatalf("ParseOrderCode(%q) = %d, %v; want %d, %v", tc.text, id, ok, tc.id, tc.ok)
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusReady, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatus("Lost"), OrderStatusConfirmed, false},
		{OrderStatusPending, OrderStatus("Lost"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestOrderStatusNextStep(t *testing.T) {
	for status := range orderStatusNextSteps {
		if status.NextStep() == "" {
			t.Fatalf("no next step for %s", status)
		}
	}
	if got := OrderStatus("Lost").NextStep(); got != "Please contact us for more details." {
		t.Fatalf("unknown status next step = %q", got)
	}
}

func TestMissingForPlacement(t *testing.T) {
	name, brand, empty, spaces := "Alex", "Michelin", "", "  \t "
	zero, two := 0, 2

	cases := []struct {
		name  string
		slots ExtractedSlots
		want  int
	}{
		{"complete", ExtractedSlots{CustomerName: &name, SelectedTyreBrand: &brand, Quantity: &two}, 0},
		{"nothing", ExtractedSlots{}, 3},
		{"empty name", ExtractedSlots{CustomerName: &empty, SelectedTyreBrand: &brand, Quantity: &two}, 1},
		{"zero quantity", ExtractedSlots{CustomerName: &name, SelectedTyreBrand: &brand, Quantity: &zero}, 1},
		{"whitespace name", ExtractedSlots{CustomerName: &spaces, SelectedTyreBrand: &brand, Quantity: &two}, 1},
		{"whitespace brand", ExtractedSlots{CustomerName: &name, SelectedTyreBrand: &spaces, Quantity: &two}, 1},
	}
	for _, tc := range cases {
		if got := tc.slots.MissingForPlacement(); len(got) != tc.want {
			t.Fatalf("%s: missing = %v, want %d entries", tc.name, got, tc.want)
		}
	}
}

func TestParseDialogState(t *testing.T) {
	cases := map[string]DialogState{
		"order_placement":  DialogStateOrderPlacement,
		"Order Placement":  DialogStateOrderPlacement,
		" size-selection ": DialogStateSizeSelection,
		"GREETING":         DialogStateGreeting,
	}
	for in, want := range cases {
		got, ok := ParseDialogState(in)
		if !ok || got != want {
			t.Fatalf("ParseDialogState(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseDialogState("chit_chat"); ok {
		t.Fatalf("unknown state accepted")
	}
}
