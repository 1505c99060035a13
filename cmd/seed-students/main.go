package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"golang.org/x/term"
)

// Seeds the roster through the LMS API, either from a CSV file
// (firstName,lastName,email,phone,nicNumber,batchNumber with a header row)
// or with generated practice students.
func main() {
	file := flag.String("file", "", "CSV file to import; empty seeds generated students")
	count := flag.Int("count", 50, "number of generated students")
	batch := flag.String("batch", "Practice", "batch number for generated students")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	api := phpapi.New(cfg.PHPBaseURL, cfg.PHPTimeout, log)
	sessions := session.NewManager(session.NewMemoryStore(), cfg.SessionIdleTTL, cfg.RememberMeTTL)
	authService := service.NewAuthService(cfg, api, sessions, log)
	studentService := service.NewStudentService(api)

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" {
		log.Fatal().Msg("SEED_ADMIN_EMAIL is required")
	}
	if password == "" {
		fmt.Printf("Enter password for %s: ", email)
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read password")
		}
		password = string(b)
	}

	signIn, err := authService.SignIn(ctx, model.SignInRequest{Email: email, Password: password})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign in")
	}
	sess := signIn.Session
	defer func() { _ = authService.Logout(context.Background(), sess) }()

	if err := authService.ConfirmAdmin(ctx, sess); err != nil {
		log.Fatal().Err(err).Msg("Account is not an administrator")
	}

	var students []model.StudentRequest
	if *file != "" {
		students, err = readCSV(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("Failed to read CSV")
		}
	} else {
		students = generate(*count, *batch)
	}

	fmt.Printf("=== Seeding %d Students ===\n", len(students))

	successCount := 0
	for i, st := range students {
		if _, err := studentService.Create(ctx, sess, st); err != nil {
			fmt.Printf("Error creating student %s %s (%s): %v\n", st.FirstName, st.LastName, st.Email, err)
			continue
		}
		successCount++
		if (i+1)%10 == 0 {
			fmt.Printf("Created %d students...\n", i+1)
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, len(students))
}

func readCSV(path string) ([]model.StudentRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]model.StudentRequest, 0, len(records))
	for i, rec := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "firstName") {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: need at least firstName,lastName,email", i+1)
		}
		out = append(out, model.StudentRequest{
			FirstName:   rec[0],
			LastName:    rec[1],
			Email:       rec[2],
			Phone:       field(rec, 3),
			NICNumber:   field(rec, 4),
			BatchNumber: field(rec, 5),
		})
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func generate(n int, batch string) []model.StudentRequest {
	first := []string{
		"Kasun", "Nimali", "Tharindu", "Dilini", "Chamara",
		"Sanduni", "Ruwan", "Ishara", "Lahiru", "Hiruni",
	}
	last := []string{"Perera", "Fernando", "Silva", "Jayasinghe", "Bandara"}

	out := make([]model.StudentRequest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.StudentRequest{
			FirstName:   first[i%len(first)],
			LastName:    last[(i/len(first))%len(last)],
			Email:       fmt.Sprintf("student%d@koren.lk", i+1),
			Phone:       fmt.Sprintf("07%08d", i+1),
			NICNumber:   fmt.Sprintf("2000%08d", i+1),
			BatchNumber: batch,
		})
	}
	return out
}
