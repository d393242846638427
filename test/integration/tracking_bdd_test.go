//go:build integration

package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eliteGoblin/timewarden/internal/domain"
	"github.com/eliteGoblin/timewarden/internal/storage"
)

var _ = Describe("Encrypted usage store", func() {
	var (
		store *storage.Store
	)

	BeforeEach(func() {
		dataDir := GinkgoT().TempDir()
		key, err := storage.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		store, err = storage.Open(dataDir, key)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Schedule persistence", func() {
		Context("when a schedule crosses midnight", func() {
			It("round-trips days, times and apps", func() {
				id, err := store.InsertSchedule(domain.Schedule{
					Name:                 "evening reading",
					StartTime:            domain.TimeOfDay{Hour: 22},
					EndTime:              domain.TimeOfDay{Hour: 6},
					Days:                 []domain.Weekday{domain.Monday, domain.Wednesday, domain.Friday},
					ExpectedApps:         []string{"Books", "Kindle"},
					CheckIntervalSeconds: 300,
					GracePeriodSeconds:   60,
					Enabled:              true,
				})
				Expect(err).NotTo(HaveOccurred())

				schedules, err := store.EnabledSchedules()
				Expect(err).NotTo(HaveOccurred())
				Expect(schedules).To(HaveLen(1))

				got := schedules[0]
				Expect(got.ID).To(Equal(id))
				Expect(got.StartTime.String()).To(Equal("22:00"))
				Expect(got.EndTime.String()).To(Equal("06:00"))
				Expect(got.Days).To(Equal([]domain.Weekday{domain.Monday, domain.Wednesday, domain.Friday}))
				Expect(got.ExpectedApps).To(Equal([]string{"Books", "Kindle"}))
			})
		})

		Context("when a schedule is deleted", func() {
			It("removes its compliance logs too", func() {
				id, err := store.InsertSchedule(domain.Schedule{
					Name:      "short-lived",
					StartTime: domain.TimeOfDay{Hour: 9},
					EndTime:   domain.TimeOfDay{Hour: 17},
					Days:      []domain.Weekday{domain.Monday},
					Enabled:   true,
				})
				Expect(err).NotTo(HaveOccurred())

				_, err = store.InsertComplianceLog(id, false, "Minecraft")
				Expect(err).NotTo(HaveOccurred())

				Expect(store.DeleteSchedule(id)).To(Succeed())

				logs, err := store.ComplianceLogs(id, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(logs).To(BeEmpty())
			})
		})
	})

	Describe("Session persistence", func() {
		It("stores closed sessions and aggregates totals", func() {
			base := time.Now().Add(-time.Hour).Truncate(time.Second)

			for i, app := range []string{"Code", "Code", "Safari"} {
				_, err := store.InsertSession(domain.Session{
					AppID:           app,
					StartTime:       base.Add(time.Duration(i) * time.Minute),
					EndTime:         base.Add(time.Duration(i)*time.Minute + 30*time.Second),
					DurationSeconds: 30,
				})
				Expect(err).NotTo(HaveOccurred())
			}

			totals, err := store.SessionTotals(base, base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(totals).To(HaveKeyWithValue("Code", int64(60)))
			Expect(totals).To(HaveKeyWithValue("Safari", int64(30)))
		})
	})
})

var _ = Describe("Key provider", func() {
	It("survives process restarts", func() {
		dataDir := GinkgoT().TempDir()

		provider := storage.NewFileKeyProvider(dataDir)
		key, err := storage.EnsureKey(provider)
		Expect(err).NotTo(HaveOccurred())

		// A fresh provider over the same directory sees the same key.
		again, err := storage.EnsureKey(storage.NewFileKeyProvider(dataDir))
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(key))

		// And the database opened with it stays readable.
		store, err := storage.Open(dataDir, key)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		_, err = store.InsertComplianceLog(1, false, "x")
		Expect(err).NotTo(HaveOccurred())
	})
})
