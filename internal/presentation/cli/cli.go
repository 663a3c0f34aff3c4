package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-cart/internal/application/shopping"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/shopspring/decimal"
)

const currency = "₹"

const menu = `
--- Online Shopping Cart ---
1. View All Products
2. Add Item to Cart
3. View Cart
4. Update Quantity
5. Remove Item
6. Checkout
7. Exit
`

// errQuit ends the session after checkout or exit.
var errQuit = errors.New("quit")

// Session runs the numbered menu over a line-oriented reader and writer.
type Session struct {
	svc *shopping.Service
	in  *bufio.Scanner
	out io.Writer
	log observability.Logger
}

func NewSession(svc *shopping.Service, in io.Reader, out io.Writer, logger observability.Logger) *Session {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Session{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
		log: logger.With(observability.F("component", "cli")),
	}
}

// Run serves menu choices until the user checks out, exits, closes the
// input or ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.printf("%s", menu)
		choice, ok := s.prompt("Choose an option: ")
		if !ok {
			return s.in.Err()
		}

		var err error
		switch choice {
		case "1":
			s.viewProducts(ctx)
		case "2":
			s.addItem(ctx)
		case "3":
			s.viewCart(ctx)
		case "4":
			s.updateQuantity(ctx)
		case "5":
			s.removeItem(ctx)
		case "6":
			err = s.checkout(ctx)
		case "7":
			s.printf("Thank you for visiting...Goodbye!\n")
			err = errQuit
		default:
			s.printf("Invalid choice.\n")
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) viewProducts(ctx context.Context) {
	products := s.svc.ListProducts(ctx)
	if len(products) == 0 {
		s.printf("No products found.\n")
		return
	}
	s.printf("\n--- Available Products ---\n")
	for _, p := range products {
		s.printf("%s\n", productDetails(p))
	}
}

func (s *Session) addItem(ctx context.Context) {
	id, ok := s.promptID("Enter product ID: ")
	if !ok {
		return
	}
	if _, known := s.svc.Product(id); !known {
		s.printf("Invalid product ID.\n")
		return
	}
	qty, ok := s.promptInt("Enter quantity: ")
	if !ok {
		s.printf("Please enter a valid number.\n")
		return
	}

	if _, err := s.svc.AddItem(ctx, id, qty); err != nil {
		s.failure("Failed to add item", err)
		return
	}
	s.printf("Item added to cart.\n")
}

func (s *Session) viewCart(ctx context.Context) {
	view := s.svc.ViewCart(ctx)
	if view.IsEmpty() {
		s.printf("Cart is empty.\n")
		return
	}
	for _, l := range view.Lines {
		s.printf("%s\n", lineDetails(l.Name, l.Quantity, l.UnitPrice, l.Subtotal))
	}
	s.printf("Total: %s\n", money(view.Total))
}

func (s *Session) updateQuantity(ctx context.Context) {
	id, ok := s.promptID("Enter product ID to update: ")
	if !ok {
		return
	}
	line, inCart := s.svc.Line(id)
	if !inCart {
		s.printf("Product not in cart.\n")
		return
	}
	s.printf("Quantity of '%s' in cart: %d\n", line.Name, line.Quantity)

	qty, ok := s.promptInt("Enter quantity to remove: ")
	if !ok {
		s.printf("Invalid input.\n")
		return
	}
	if _, err := s.svc.UpdateQuantity(ctx, id, qty); err != nil {
		s.failure("Failed to update cart", err)
		return
	}
	s.printf("Cart updated.\n")
}

func (s *Session) removeItem(ctx context.Context) {
	id, ok := s.promptID("Enter product ID to remove: ")
	if !ok {
		return
	}
	line, inCart := s.svc.Line(id)
	if !inCart {
		s.printf("Item not found in cart.\n")
		return
	}
	if _, err := s.svc.RemoveItem(ctx, id); err != nil {
		s.failure("Failed to remove item", err)
		return
	}
	s.printf("Removed: %s\n", line.Name)
}

func (s *Session) checkout(ctx context.Context) error {
	bill, err := s.svc.Checkout(ctx)
	if err != nil {
		s.failure("Checkout failed", err)
		return nil
	}
	s.printReceipt(bill)
	return errQuit
}

func (s *Session) printReceipt(b *billing.Bill) {
	s.printf("\n--- BILL RECEIPT ---\n")
	for _, l := range b.Lines {
		s.printf("%s\n", lineDetails(l.Name, l.Quantity, l.UnitPrice, l.Subtotal))
	}
	s.printf("Grand Total: %s\n", money(b.GrandTotal))
	s.printf("Thank you for shopping with us!\n")
}

func (s *Session) failure(msg string, err error) {
	if shopping.IsRejected(err) {
		s.printf("%s.\n", msg)
		return
	}
	s.log.Error("cli_operation_failed", observability.F("error", err))
	s.printf("%s: %v\n", msg, err)
}

func (s *Session) prompt(label string) (string, bool) {
	s.printf("%s", label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// promptID reads a product id and normalizes it: trimmed, upper case.
func (s *Session) promptID(label string) (string, bool) {
	id, ok := s.prompt(label)
	return strings.ToUpper(id), ok
}

func (s *Session) promptInt(label string) (int, bool) {
	raw, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func money(d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

func productDetails(p shopping.ProductView) string {
	switch p.Kind {
	case catalog.KindPhysical:
		return fmt.Sprintf("%s | %s | %s | Stock: %d | Weight: %s kg",
			p.ID, p.Name, money(p.Price), p.QuantityAvailable, strconv.FormatFloat(p.Weight, 'f', -1, 64))
	case catalog.KindDigital:
		return fmt.Sprintf("%s | %s | %s | Download: %s", p.ID, p.Name, money(p.Price), p.DownloadLink)
	default:
		return fmt.Sprintf("ID: %s | Name: %s | Price: %s | Stock: %d", p.ID, p.Name, money(p.Price), p.QuantityAvailable)
	}
}

func lineDetails(name string, qty int, price, subtotal decimal.Decimal) string {
	return fmt.Sprintf("Item: %s, Quantity: %d, Price: %s, Subtotal: %s", name, qty, money(price), money(subtotal))
}
