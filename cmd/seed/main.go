package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/reminder-service/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	locationIDs, err := seedLocations(context.Background(), pool, 3)
	if err != nil {
		log.Fatalf("seed locations: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedContactPoints(context.Background(), pool, patientIDs); err != nil {
		log.Fatalf("seed contact points: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, patientIDs, providerIDs, locationIDs, 1500); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
	}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := pool.Exec(ctx, `
			INSERT INTO providers (id, first_name, last_name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedLocations(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d locations", count)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.City() + " Health Center"
		phone := gofakeit.Phone()

		_, err := pool.Exec(ctx, `
			INSERT INTO locations (id, full_name, phone)
			VALUES ($1, $2, $3)
		`, id, name, phone)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedContactPoints(ctx context.Context, pool *pgxpool.Pool, patientIDs []uuid.UUID) error {
	log.Printf("seeding contact points for %d patients", len(patientIDs))

	for _, patientID := range patientIDs {
		// Nearly everyone has a phone; most have consented.
		if gofakeit.Number(1, 100) <= 95 {
			err := insertContactPoint(ctx, pool, patientID, "phone", gofakeit.Phone(),
				true, gofakeit.Number(1, 100) <= 90, gofakeit.Number(1, 100) <= 5)
			if err != nil {
				return err
			}
		}
		if gofakeit.Number(1, 100) <= 80 {
			err := insertContactPoint(ctx, pool, patientID, "email", gofakeit.Email(),
				true, gofakeit.Number(1, 100) <= 85, gofakeit.Number(1, 100) <= 5)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func insertContactPoint(ctx context.Context, pool *pgxpool.Pool, patientID uuid.UUID, kind, address string, primary, hasConsent, optedOut bool) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO contact_points (id, patient_id, kind, address, is_primary, has_consent, opted_out, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', now())
	`, uuid.New(), patientID, kind, address, primary, hasConsent, optedOut)
	return err
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patientIDs, providerIDs, locationIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	for i := 0; i < count; i++ {
		patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
		providerID := providerIDs[gofakeit.Number(0, len(providerIDs)-1)]
		locationID := locationIDs[gofakeit.Number(0, len(locationIDs)-1)]

		// Business hours over the next ten days.
		daysOut := gofakeit.Number(0, 9)
		hour := gofakeit.Number(8, 17)
		start := time.Now().Truncate(time.Hour).Add(time.Duration(daysOut)*24*time.Hour + time.Duration(hour)*time.Hour)

		_, err := pool.Exec(ctx, `
			INSERT INTO appointments (id, patient_id, provider_id, location_id, start_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'scheduled', now(), now())
		`, uuid.New(), patientID, providerID, locationID, start)
		if err != nil {
			return err
		}
	}
	return nil
}
