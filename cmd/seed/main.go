// Package main seeds a LibraryDesk database with sample books, members and
// borrowings for local development.
//
// Usage:
//
//	DATA_PATH=~/librarydesk go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/librarydesk/librarydesk-server/internal/di"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/logger"
	"github.com/librarydesk/librarydesk-server/internal/service"
)

type sampleBook struct {
	title, author, isbn, publisher string
	copies                         int
}

var sampleBooks = []sampleBook{
	{"Dune", "Frank Herbert", "9780441172719", "Ace", 4},
	{"Hyperion", "Dan Simmons", "9780553283686", "Bantam Spectra", 2},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "9780441478125", "Ace", 3},
	{"Neuromancer", "William Gibson", "9780441569595", "Ace", 2},
	{"Foundation", "Isaac Asimov", "9780553293357", "Bantam Spectra", 5},
	{"The Dispossessed", "Ursula K. Le Guin", "9780061054884", "Harper Voyager", 1},
}

type sampleMember struct {
	first, last, email, phone string
}

var sampleMembers = []sampleMember{
	{"Ada", "Lovelace", "ada@example.org", "555-0101"},
	{"Alan", "Turing", "alan@example.org", "555-0102"},
	{"Grace", "Hopper", "grace@example.org", "555-0103"},
	{"Edsger", "Dijkstra", "edsger@example.org", ""},
	{"Barbara", "Liskov", "barbara@example.org", "555-0105"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	injector := di.NewContainer()
	defer injector.Shutdown()

	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}
	catalog, err := do.Invoke[*service.CatalogService](injector)
	if err != nil {
		return err
	}
	members, err := do.Invoke[*service.MemberService](injector)
	if err != nil {
		return err
	}
	circulation, err := do.Invoke[*service.CirculationService](injector)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var bookIDs []string
	for _, b := range sampleBooks {
		copies := b.copies
		book, err := catalog.CreateBook(ctx, service.CreateBookRequest{
			Title:       b.title,
			Author:      b.author,
			ISBN:        b.isbn,
			Publisher:   b.publisher,
			TotalCopies: &copies,
		})
		if errors.Is(err, domainerrors.ErrDuplicateISBN) {
			log.Info("book already present, skipping", "isbn", b.isbn)
			continue
		}
		if err != nil {
			return fmt.Errorf("create book %q: %w", b.title, err)
		}
		bookIDs = append(bookIDs, book.ID)
	}

	var memberIDs []string
	for _, m := range sampleMembers {
		member, err := members.CreateMember(ctx, service.CreateMemberRequest{
			FirstName: m.first,
			LastName:  m.last,
			Email:     m.email,
			Phone:     m.phone,
		})
		if errors.Is(err, domainerrors.ErrDuplicateEmail) {
			log.Info("member already present, skipping", "email", m.email)
			continue
		}
		if err != nil {
			return fmt.Errorf("create member %q: %w", m.email, err)
		}
		memberIDs = append(memberIDs, member.ID)
	}

	// Lend the first few titles round-robin so the dashboard has open loans.
	loans := 0
	for i, bookID := range bookIDs {
		if len(memberIDs) == 0 {
			break
		}
		_, err := circulation.Checkout(ctx, service.CheckoutRequest{
			BookID:   bookID,
			MemberID: memberIDs[i%len(memberIDs)],
		})
		if errors.Is(err, domainerrors.ErrOutOfStock) {
			continue
		}
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		loans++
	}

	// Index writes are best-effort; make sure the seeded rows are searchable.
	if searchService := do.MustInvoke[*service.SearchService](injector); searchService != nil {
		if err := searchService.ReindexAll(ctx); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
	}

	log.Info("seed complete", "books", len(bookIDs), "members", len(memberIDs), "borrowings", loans)
	return nil
}
