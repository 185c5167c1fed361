// internal/workers/agent/render-response/render.go
package renderresponse

import (
	"fmt"
	"strings"

	apperrors "pharmacy-agent/internal/common/errors"
	"pharmacy-agent/internal/models"
)

// Render turns a ToolResult into the reply shown to the customer. It never
// returns an empty string.
func Render(r *models.ToolResult) string {
	if r == nil {
		return UnprocessableMessage
	}
	if r.Response != "" {
		return r.Response
	}

	switch r.Status {
	case models.StatusSmalltalk:
		return Greeting
	case models.StatusVerified:
		return renderVerified(r)
	case models.StatusSuccess:
		if text := renderSuccess(r); text != "" {
			return text
		}
	case models.StatusNotVerified, models.StatusExpired, models.StatusPending, models.StatusRejected:
		return renderPrescriptionStatus(r)
	case models.StatusCancelled:
		return renderCancelled(r)
	case models.StatusNotFound:
		return NotFoundMessage
	case models.StatusError:
		return renderError(r)
	}

	return HelpMessage
}

func renderSuccess(r *models.ToolResult) string {
	switch data := r.Data.(type) {
	case models.InventoryResult:
		return renderInventory(data)
	case models.HistoryResult:
		return renderHistory(data)
	case models.OrderConfirmation:
		return fmt.Sprintf("%s\nOrder ID: %d\nMedicine: %s\nQuantity: %d\nTotal Price: €%.2f",
			OrderPlacedHeader, data.OrderID, data.Medicine, data.Quantity, data.TotalPrice)
	case models.OrderStatusResult:
		return renderOrderStatus(data.Order)
	case models.StockUpdateResult:
		return fmt.Sprintf("Stock for %s updated by %+d. New stock: %d units.", data.Medicine, data.Delta, data.NewStock)
	case models.PrescriptionResult:
		return renderVerified(r)
	case models.GenericMessage:
		if data.Text != "" {
			return data.Text
		}
	}
	return r.Message
}

func renderInventory(inv models.InventoryResult) string {
	if len(inv.Items) == 0 {
		return NotFoundMessage
	}

	item := inv.Items[0]
	var b strings.Builder
	fmt.Fprintf(&b, "%s is available.\nPrice: €%.2f\nStock: %d units.\nPrescription Required: %s",
		item.Name, item.Price, item.Stock, yesNo(item.PrescriptionRequired))

	if len(inv.Items) > 1 {
		others := make([]string, 0, len(inv.Items)-1)
		for _, m := range inv.Items[1:] {
			others = append(others, m.Name)
		}
		fmt.Fprintf(&b, "\nOther matches: %s", strings.Join(others, ", "))
	}
	return b.String()
}

func renderHistory(h models.HistoryResult) string {
	if len(h.Orders) == 0 {
		return NoOrdersMessage
	}

	lines := []string{HistoryHeader}
	for _, o := range h.Orders {
		line := fmt.Sprintf("- %s | Quantity: %d | Date: %s | Total: €%.2f",
			o.Medicine, o.Quantity, o.PurchaseDate.Format(dateLayout), o.TotalPrice)
		if o.Status == models.OrderStatusCancelled {
			line += " (cancelled)"
		}
		lines = append(lines, line)
	}
	for _, due := range h.RefillDue {
		lines = append(lines, fmt.Sprintf("Refill reminder: %s was due for a refill on %s.", due.Medicine, due.DueOn.Format(dateLayout)))
	}
	return strings.Join(lines, "\n")
}

func renderOrderStatus(o models.OrderRecord) string {
	return fmt.Sprintf("Order %d: %d x %s, status %s, placed on %s.",
		o.OrderID, o.Quantity, o.Medicine, o.Status, o.PurchaseDate.Format(dateLayout))
}

func renderVerified(r *models.ToolResult) string {
	p, ok := r.Data.(models.PrescriptionResult)
	if !ok || p.ValidUntil.IsZero() {
		return PrescriptionVerifiedMsg
	}
	name := p.Medicine
	if name == "" {
		name = "this medicine"
	}
	return fmt.Sprintf("Your prescription for %s has been verified. It is valid until %s.", name, p.ValidUntil.Format(dateLayout))
}

func renderPrescriptionStatus(r *models.ToolResult) string {
	p, _ := r.Data.(models.PrescriptionResult)
	name := p.Medicine
	if name == "" {
		name = "this medicine"
	}

	switch r.Status {
	case models.StatusExpired:
		if !p.ValidUntil.IsZero() {
			return fmt.Sprintf("Your prescription for %s expired on %s. Please upload a new one.", name, p.ValidUntil.Format(dateLayout))
		}
		return fmt.Sprintf("Your prescription for %s has expired. Please upload a new one.", name)
	case models.StatusPending:
		return fmt.Sprintf("Your prescription for %s is awaiting review.", name)
	case models.StatusRejected:
		return fmt.Sprintf("Your prescription for %s was rejected.", name)
	}
	return fmt.Sprintf("No verified prescription is on file for %s.", name)
}

func renderCancelled(r *models.ToolResult) string {
	if r.Message != "" {
		return r.Message
	}
	if s, ok := r.Data.(models.OrderStatusResult); ok {
		return fmt.Sprintf("Order %d has been cancelled.", s.Order.OrderID)
	}
	return "Your order has been cancelled."
}

func renderError(r *models.ToolResult) string {
	if apperrors.IsCollaboratorErrorCode(r.Code) || r.Code == apperrors.ErrCodeInternal {
		return BackendApology
	}

	switch r.Code {
	case apperrors.ErrCodeNotFound:
		return NotFoundMessage
	case apperrors.ErrCodeInsufficientStock:
		if s, ok := r.Data.(models.StockShortage); ok {
			return fmt.Sprintf("%s Only %d units of %s are in stock.", InsufficientStock, s.Available, s.Medicine)
		}
		return InsufficientStock
	case apperrors.ErrCodePrescriptionRequired:
		return PrescriptionRequired
	case apperrors.ErrCodeInvalidQuantity:
		return InvalidQuantityMessage
	case apperrors.ErrCodeMissingMedicine:
		return MissingMedicineMessage
	case apperrors.ErrCodeMonthlyLimitExceeded:
		if l, ok := r.Data.(models.MonthlyLimit); ok {
			return fmt.Sprintf("You can order at most %d units of %s per month. You have already ordered %d this month.", l.Limit, l.Medicine, l.Used)
		}
	case apperrors.ErrCodeOrderNotFound:
		if r.Message == "" {
			return OrderNotFoundMessage
		}
	}

	if r.Message != "" {
		return r.Message
	}
	return GenericErrorMessage
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
