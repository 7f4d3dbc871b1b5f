package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"libcirc/internal/accounts"
	"libcirc/internal/catalog"
	"libcirc/lending"
	"libcirc/lending/sqlengine"
)

func newAddBookCommand(open func() (*toolbox, error)) *cobra.Command {
	var params catalog.BookParams

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			book, err := tb.catalog.AddBook(ctx, params)
			if err != nil {
				return err
			}

			fmt.Printf("added book %d: %s\n", book.ID, book.Title)
			return nil
		}),
	}

	cmd.Flags().StringVar(&params.Title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&params.Author, "author", "", "book author")
	cmd.Flags().StringVar(&params.ISBN, "isbn", "", "ISBN, unique when set")
	cmd.Flags().StringVar(&params.Category, "category", "", "catalog category")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAddUserCommand(open func() (*toolbox, error)) *cobra.Command {
	var (
		params accounts.CreateUserParams
		role   string
	)

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a member or staff account",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			parsed, err := lending.ParseRole(role)
			if err != nil {
				return err
			}
			params.Role = parsed

			user, err := tb.accounts.CreateUser(ctx, params)
			if err != nil {
				return err
			}

			fmt.Printf("created %s account %d: %s <%s>\n", user.Role, user.ID, user.Name, user.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&params.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&params.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&params.Password, "password", "", "login password (required)")
	cmd.Flags().StringVar(&role, "role", "student", "account role: student, faculty, admin, or librarian")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newIssueCommand(open func() (*toolbox, error)) *cobra.Command {
	var (
		bookID   int64
		memberID int64
		staffID  int64
		due      string
		loanDays int
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a book to a member",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			dueDate, err := resolveDueDate(tb.engine, due, loanDays)
			if err != nil {
				return err
			}

			loan, err := tb.engine.IssueBook(ctx, sqlengine.IssueBookCommand{
				BookID:   lending.BookID(bookID),
				MemberID: lending.MemberID(memberID),
				StaffID:  lending.StaffID(staffID),
				DueDate:  dueDate,
			})
			if err != nil {
				return err
			}

			fmt.Printf("issued loan %d: book %d to member %d, due %s\n",
				loan.ID, loan.BookID, loan.MemberID, loan.DueDate)
			return nil
		}),
	}

	cmd.Flags().Int64Var(&bookID, "book", 0, "book id (required)")
	cmd.Flags().Int64Var(&memberID, "member", 0, "member id (required)")
	cmd.Flags().Int64Var(&staffID, "staff", 0, "acting staff id (required)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD; defaults to today plus --loan-days")
	cmd.Flags().IntVar(&loanDays, "loan-days", 14, "loan period when --due is not set")
	_ = cmd.MarkFlagRequired("book")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("staff")

	return cmd
}

func resolveDueDate(engine *sqlengine.Engine, due string, loanDays int) (lending.Date, error) {
	if due == "" {
		return engine.Today().AddDays(loanDays), nil
	}

	return lending.ParseDate(due)
}

func newReturnCommand(open func() (*toolbox, error)) *cobra.Command {
	var (
		loanID     int64
		bookID     int64
		returnDate string
	)

	cmd := &cobra.Command{
		Use:   "return",
		Short: "Return a book, closing its open loan",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			command := sqlengine.ReturnBookCommand{
				LoanID: lending.LoanID(loanID),
				BookID: lending.BookID(bookID),
			}

			if returnDate != "" {
				parsed, err := lending.ParseDate(returnDate)
				if err != nil {
					return err
				}
				command.ReturnDate = parsed
			}

			loan, err := tb.engine.ReturnBook(ctx, command)
			if err != nil {
				return err
			}

			fmt.Printf("closed loan %d: book %d returned %s, fine %s\n",
				loan.ID, loan.BookID, loan.ReturnDate, loan.Fine)
			return nil
		}),
	}

	cmd.Flags().Int64Var(&loanID, "loan", 0, "loan id; alternatively resolve by --book")
	cmd.Flags().Int64Var(&bookID, "book", 0, "book id of the open loan")
	cmd.Flags().StringVar(&returnDate, "date", "", "return date YYYY-MM-DD, defaults to today")

	return cmd
}

func newListBooksCommand(open func() (*toolbox, error)) *cobra.Command {
	var (
		query    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list-books",
		Short: "List catalog entries",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			books, err := tb.catalog.ListBooks(ctx, catalog.SearchFilter{
				Query:    query,
				Category: category,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORY\tSTATUS")

			for _, book := range books {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					book.ID, book.Title, book.Author, book.Category, book.Status)
			}

			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&query, "q", "", "match against title, author, or ISBN")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")

	return cmd
}

func newOverdueCommand(open func() (*toolbox, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans with their potential fines",
		RunE: run(open, func(ctx context.Context, tb *toolbox) error {
			report, err := tb.reports.OverdueReport(ctx)
			if err != nil {
				return err
			}

			if len(report) == 0 {
				fmt.Println("no overdue loans")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOAN\tBOOK\tTITLE\tMEMBER\tDUE\tDAYS LATE\tPOTENTIAL FINE")

			for _, row := range report {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s (%d)\t%s\t%d\t%s\n",
					row.LoanID, row.BookID, row.Title, row.MemberName, row.MemberID,
					row.DueDate, row.DaysLate, row.PotentialFine)
			}

			return w.Flush()
		}),
	}
}
