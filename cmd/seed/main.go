package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/db"
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

	providerIDs, err := seedProviders(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 5000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedOrders(context.Background(), pool, patientIDs); err != nil {
		log.Fatalf("seed orders: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Radiology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Gastroenterology",
	"Dermatology",
}

var procedureTypes = []string{
	"MRI",
	"CT Scan",
	"X-Ray",
	"Ultrasound",
	"Echocardiogram",
	"Colonoscopy",
	"Blood Panel",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

// seedSchedules gives every provider a Monday-Friday working week with
// slightly varied hours.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding schedules for %d providers", len(providerIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providerIDs {
		startHour := gofakeit.Number(7, 9)
		endHour := gofakeit.Number(16, 18)
		location := gofakeit.Company() + " Clinic"

		for dow := 1; dow <= 5; dow++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO provider_schedules (id, provider_id, day_of_week, start_time, end_time, location, staff_assigned, slot_minutes, max_slots, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 30, 0, true, now(), now())
			`, uuid.New(), providerID, dow,
				fmt.Sprintf("%02d:00", startHour),
				fmt.Sprintf("%02d:00", endHour),
				location,
				[]string{gofakeit.Name()},
			)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("schedules seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			score := gofakeit.Number(20, 90)
			minNotice := gofakeit.RandomInt([]int{2, 2, 2, 4, 12, 24, 48})

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, karma_score, min_hours_notice, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, id, name, email, score, minNotice)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedOrders leaves roughly a third of patients with an open order so the
// cancellation matcher has demand to work with.
func seedOrders(ctx context.Context, pool *pgxpool.Pool, patientIDs []uuid.UUID) error {
	log.Printf("seeding orders for %d patients", len(patientIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	created := 0
	for _, patientID := range patientIDs {
		if gofakeit.Number(0, 2) != 0 {
			continue
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, patient_id, procedure_type, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'unscheduled', now(), now())
		`, uuid.New(), patientID, procedureTypes[gofakeit.Number(0, len(procedureTypes)-1)])
		if err != nil {
			return err
		}
		created++
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("orders seeded: %d", created)
	return nil
}
