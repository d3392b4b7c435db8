package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"freelancer-feedback/internal/adapters/feedbackclient"
	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/config"
)

const usage = `usage: feedbackctl <command> [flags]

commands:
  submit    отправить отзыв
  seed      отправить три тестовых отзыва
  login     получить токен админской сессии
  logout    отозвать токен
  summary   сводка по фрилансерам
  details   все отзывы, новые первыми`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	client, err := feedbackclient.New(cfg.Client.APIURL, feedbackclient.WithTimeout(cfg.Client.Timeout))
	if err != nil {
		log.Fatal().Err(err).Msg("feedbackctl: неверный FEEDBACK_API_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, client, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if vErr, ok := domain.AsValidationError(err); ok {
			for _, f := range vErr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", f.Field, f.Message)
			}
			os.Exit(1)
		}
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("feedbackctl: команда завершилась ошибкой")
	}
}

func run(ctx context.Context, client *feedbackclient.Client, command string, args []string, out io.Writer) error {
	switch command {
	case "submit":
		return runSubmit(ctx, client, args, out)
	case "seed":
		return runSeed(ctx, client, out)
	case "login":
		return runLogin(ctx, client, args, out)
	case "logout":
		return runLogout(ctx, client, args, out)
	case "summary", "details":
		return runQuery(ctx, client, command == "details", args, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func runSubmit(ctx context.Context, client *feedbackclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	var (
		in       domain.FeedbackInput
		comments string
	)
	fs.StringVar(&in.Email, "email", "", "Email клиента")
	fs.StringVar(&in.FreelancerName, "name", "", "Имя фрилансера")
	fs.StringVar(&in.ProfileURL, "url", "", "Ссылка на профиль")
	fs.IntVar(&in.Ratings.Communication, "communication", 0, "Оценка коммуникации 1-5")
	fs.IntVar(&in.Ratings.Quality, "quality", 0, "Оценка качества 1-5")
	fs.IntVar(&in.Ratings.Value, "value", 0, "Оценка цены 1-5")
	fs.IntVar(&in.Ratings.Timeliness, "timeliness", 0, "Оценка сроков 1-5")
	fs.IntVar(&in.Ratings.Expertise, "expertise", 0, "Оценка экспертизы 1-5")
	fs.IntVar(&in.Ratings.Overall, "overall", 0, "Общая оценка 1-5")
	fs.StringVar(&comments, "comments", "", "Комментарий")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if comments != "" {
		in.Comments = &comments
	}

	id, err := client.Submit(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Feedback submitted successfully (id=%d)\n", id)
	return nil
}

func runSeed(ctx context.Context, client *feedbackclient.Client, out io.Writer) error {
	for _, sample := range seedFeedback() {
		id, err := client.Submit(ctx, sample)
		if err != nil {
			return fmt.Errorf("seed %s: %w", sample.Email, err)
		}
		fmt.Fprintf(out, "seeded id=%d %s\n", id, sample.FreelancerName)
	}
	return nil
}

func runLogin(ctx context.Context, client *feedbackclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	credential := fs.String("credential", "", "Общий секрет админки")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := client.Login(ctx, *credential)
	if err != nil {
		return err
	}
	return writeJSON(out, token)
}

func runLogout(ctx context.Context, client *feedbackclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	token := fs.String("token", "", "Токен сессии")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := client.Logout(ctx, *token); err != nil {
		return err
	}
	fmt.Fprintln(out, "session revoked")
	return nil
}

func runQuery(ctx context.Context, client *feedbackclient.Client, detailed bool, args []string, out io.Writer) error {
	name := "summary"
	if detailed {
		name = "details"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var auth feedbackclient.Auth
	fs.StringVar(&auth.Credential, "credential", "", "Общий секрет админки")
	fs.StringVar(&auth.Token, "token", "", "Токен сессии (вместо секрета)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if detailed {
		rows, err := client.Details(ctx, auth)
		if err != nil {
			return err
		}
		return writeJSON(out, rows)
	}
	rows, err := client.Summary(ctx, auth)
	if err != nil {
		return err
	}
	return writeJSON(out, rows)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
