package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/validator"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	validator.Setup()
	api := phpapi.New(cfg.PHPBaseURL, cfg.PHPTimeout, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Register New LMS Account ===")

	req := model.SignUpRequest{
		FirstName:   prompt(reader, "First Name"),
		LastName:    prompt(reader, "Last Name"),
		NICNumber:   prompt(reader, "NIC Number"),
		PhoneNumber: validator.DigitsOnly(prompt(reader, "Phone Number")),
		Email:       prompt(reader, "Email"),
	}

	password, err := readPassword("Password")
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	confirm, err := readPassword("Confirm Password")
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	req.Password, req.ConfirmPassword = password, confirm

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		fields := validator.TranslateErrors(err)
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("Error: %s: %s\n", k, fields[k])
		}
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PHPTimeout+5*time.Second)
	defer cancel()

	msg, err := api.SignUp(ctx, req)
	if err != nil {
		var apiErr *phpapi.APIError
		if errors.As(err, &apiErr) {
			fmt.Printf("Error: %s\n", apiErr.Message)
			return
		}
		log.Fatal().Err(err).Msg("Failed to reach the LMS API")
	}

	if msg == "" {
		msg = "Account created"
	}
	fmt.Printf("\nSuccess! %s for %s (%s)\n", msg, req.FirstName+" "+req.LastName, req.Email)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Printf("Enter %s: ", label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

func readPassword(label string) (string, error) {
	fmt.Printf("Enter %s: ", label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(b), err
}
