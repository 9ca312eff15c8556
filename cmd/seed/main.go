// Command seed fills a development database with tutors and weekly
// schedules, and prints bearer tokens for exercising the API by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"tutorbook/config"
	"tutorbook/database"
	availabilityRepo "tutorbook/database/repository/availability"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/services/availability"
	"tutorbook/services/tutor"
	"tutorbook/services/storage"
	"tutorbook/utils"
)

const tutorCount = 6

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		tutors tutorRepo.TutorRepository
		slots  availabilityRepo.AvailabilityRepository
	)
	if config.UseMemoryStore() {
		log.Println("STORE_DRIVER=memory, seeding into a throwaway store")
		tutors = tutorRepo.NewMemoryTutorRepo()
		slots = availabilityRepo.NewMemoryAvailabilityRepo()
	} else {
		if err := database.InitDB(ctx); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer database.MongoClient.Disconnect(context.Background())
		tutors = tutorRepo.NewMongoTutorRepo()
		slots = availabilityRepo.NewMongoAvailabilityRepo()
	}

	tutorSvc := &tutor.DefaultTutorService{Repo: tutors, Storage: storage.NewCloudinaryStorage(nil), Logger: logger}
	availabilitySvc := &availability.DefaultAvailabilityService{Repo: slots, Tutors: tutors, Logger: logger}

	subjects := []string{"Mathematics", "Physics", "Chemistry", "English", "Biology", "History"}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 1; i <= tutorCount; i++ {
		p := &models.Principal{
			UserID: fmt.Sprintf("seed-tutor-%d", i),
			Role:   models.RoleTutor,
			Email:  fmt.Sprintf("tutor%d@example.com", i),
			Name:   fmt.Sprintf("%s Tutor %d", subjects[(i-1)%len(subjects)], i),
		}

		// Odd tutors teach groups too; every third one bills in USD.
		currency := utils.CurrencyINR
		rate := float64(400 + rng.Intn(12)*50)
		if i%3 == 0 {
			currency = utils.CurrencyUSD
			rate = float64(15 + rng.Intn(20))
		}
		req := models.UpsertTutorRequest{
			FullName:      p.Name,
			Email:         p.Email,
			HourlyRate:    rate,
			Currency:      currency,
			OffersPrivate: true,
			OffersGroup:   i%2 == 1,
		}

		profile, err := tutorSvc.Register(ctx, p, req)
		if err != nil {
			if !utils.IsKind(err, utils.KindValidation) {
				log.Fatalf("Failed to register %s: %v", p.UserID, err)
			}
			if profile, err = tutorSvc.Mine(ctx, p); err != nil {
				log.Fatalf("Failed to load existing %s: %v", p.UserID, err)
			}
		}

		private := models.EmptyWeeklySchedule()
		for _, day := range models.Weekdays[:5] {
			private[day] = []models.TimeRange{
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "14:00", EndTime: "18:00"},
			}
		}
		if _, err := availabilitySvc.SetWeeklySchedule(ctx, profile.ID, models.SessionPrivate, private); err != nil {
			log.Fatalf("Failed to set private schedule for %s: %v", profile.ID, err)
		}
		if req.OffersGroup {
			group := models.EmptyWeeklySchedule()
			group["saturday"] = []models.TimeRange{{StartTime: "10:00", EndTime: "13:00"}}
			if _, err := availabilitySvc.SetWeeklySchedule(ctx, profile.ID, models.SessionGroup, group); err != nil {
				log.Fatalf("Failed to set group schedule for %s: %v", profile.ID, err)
			}
		}

		token, err := utils.GenerateToken(*p, utils.AccessTokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("tutor %s (%s %.0f/h) token: %s\n", profile.ID, profile.Currency, profile.HourlyRate, token)
	}

	for _, p := range []models.Principal{
		{UserID: "seed-student-1", Role: models.RoleStudent, Email: "student1@example.com", Name: "Student One"},
		{UserID: "seed-admin", Role: models.RoleAdmin, Email: "admin@example.com", Name: "Admin"},
	} {
		token, err := utils.GenerateToken(p, utils.AccessTokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("%s %s token: %s\n", p.Role, p.UserID, token)
	}
}
