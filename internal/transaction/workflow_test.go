package transaction_test

import (
	"time"

	"github.com/aarondl/null/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/transaction"
)

var _ = Describe("Workflow engine", func() {
	var (
		now       time.Time
		citizen   user.Actor
		stranger  user.Actor
		employee  user.Actor
		admin     user.Actor
		advisor   user.Actor
		allActors []user.Actor
	)

	txIn := func(status transaction.Status) transaction.Transaction {
		return transaction.Transaction{
			ID:             "11111111-1111-1111-1111-111111111111",
			TrackingNumber: "TXN-LZ8K2M3N-ABC123",
			CitizenID:      citizen.ID,
			Status:         status,
			Priority:       transaction.PriorityNormal,
			CreatedAt:      now.Add(-time.Hour),
			UpdatedAt:      now.Add(-time.Hour),
		}
	}

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		citizen = user.Actor{ID: "U1", Role: user.RoleCitizen}
		stranger = user.Actor{ID: "U2", Role: user.RoleCitizen}
		employee = user.Actor{ID: "E1", Role: user.RoleEmployee}
		admin = user.Actor{ID: "A1", Role: user.RoleAdmin}
		advisor = user.Actor{ID: "L1", Role: user.RoleLegalAdvisor}
		allActors = []user.Actor{
			citizen, stranger, employee, admin, advisor,
			{ID: "S1", Role: user.RoleSupervisor},
		}
	})

	Describe("terminal states", func() {
		It("permits no transition out of completed or cancelled", func() {
			for _, from := range []transaction.Status{transaction.StatusCompleted, transaction.StatusCancelled} {
				for _, to := range transaction.AllStatuses {
					Expect(transaction.CanTransition(from, to)).To(BeFalse())
					for _, actor := range allActors {
						d, err := transaction.ApplyTransition(txIn(from), transaction.Patch{
							Status:          to,
							RejectionReason: null.StringFrom("reason"),
						}, actor, now)
						Expect(d).To(BeNil())
						Expect(err).To(MatchError(internal.NewInvalidTransitionError(string(from), string(to))))
					}
				}
			}
		})
	})

	Describe("self transitions", func() {
		It("always fails with InvalidTransition", func() {
			for _, s := range transaction.AllStatuses {
				for _, actor := range allActors {
					_, err := transaction.ApplyTransition(txIn(s), transaction.Patch{
						Status:          s,
						RejectionReason: null.StringFrom("reason"),
					}, actor, now)
					appErr, ok := internal.IsAppError(err)
					Expect(ok).To(BeTrue())
					Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
				}
			}
		})
	})

	Describe("rejection without a reason", func() {
		It("fails with MissingField regardless of actor", func() {
			for _, from := range []transaction.Status{transaction.StatusUnderReview, transaction.StatusPendingDocuments} {
				for _, actor := range allActors {
					for _, reason := range []null.String{{}, null.StringFrom("   ")} {
						_, err := transaction.ApplyTransition(txIn(from), transaction.Patch{
							Status:          transaction.StatusRejected,
							RejectionReason: reason,
						}, actor, now)
						appErr, ok := internal.IsAppError(err)
						Expect(ok).To(BeTrue())
						Expect(appErr.Code).To(Equal(internal.ErrCodeMissingField))
					}
				}
			}
		})
	})

	Describe("pairs outside the table", func() {
		It("never mutate the input and never emit effects", func() {
			for _, from := range transaction.AllStatuses {
				for _, to := range transaction.AllStatuses {
					for _, actor := range allActors {
						in := txIn(from)
						snapshot := in
						patch := transaction.Patch{Status: to}
						if to == transaction.StatusRejected {
							patch.RejectionReason = null.StringFrom("missing ID")
						}
						d, err := transaction.ApplyTransition(in, patch, actor, now)
						if err == nil {
							Expect(transaction.CanTransition(from, to)).To(BeTrue())
							continue
						}
						Expect(d).To(BeNil())
						Expect(in).To(Equal(snapshot))
						appErr, ok := internal.IsAppError(err)
						Expect(ok).To(BeTrue())
						Expect(appErr.Code).To(BeElementOf(internal.ErrCodeForbidden, internal.ErrCodeInvalidTransition))
					}
				}
			}
		})

		DescribeTable("deny actors the edge does not name",
			func(from, to transaction.Status, actorOf func() user.Actor) {
				_, err := transaction.ApplyTransition(txIn(from), transaction.Patch{Status: to}, actorOf(), now)
				Expect(err).To(MatchError(internal.ErrForbidden))
			},
			Entry("stranger submits", transaction.StatusDraft, transaction.StatusSubmitted, func() user.Actor { return stranger }),
			Entry("employee submits", transaction.StatusDraft, transaction.StatusSubmitted, func() user.Actor { return employee }),
			Entry("citizen starts review", transaction.StatusSubmitted, transaction.StatusUnderReview, func() user.Actor { return citizen }),
			Entry("advisor starts review", transaction.StatusSubmitted, transaction.StatusUnderReview, func() user.Actor { return advisor }),
			Entry("citizen approves", transaction.StatusUnderReview, transaction.StatusApproved, func() user.Actor { return citizen }),
			Entry("citizen cancels submitted", transaction.StatusSubmitted, transaction.StatusCancelled, func() user.Actor { return citizen }),
			Entry("employee cancels", transaction.StatusDraft, transaction.StatusCancelled, func() user.Actor { return employee }),
		)
	})

	Describe("round trip", func() {
		It("visits five states and produces four history intents", func() {
			// Given
			t := txIn(transaction.StatusDraft)
			steps := []struct {
				to    transaction.Status
				actor user.Actor
			}{
				{transaction.StatusSubmitted, citizen},
				{transaction.StatusUnderReview, employee},
				{transaction.StatusApproved, employee},
				{transaction.StatusCompleted, admin},
			}

			// When
			visited := []transaction.Status{t.Status}
			var histories []transaction.HistoryIntent
			for i, step := range steps {
				d, err := transaction.ApplyTransition(t, transaction.Patch{Status: step.to}, step.actor, now.Add(time.Duration(i)*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				histories = append(histories, d.Effects.History)
				t = d.Transaction
				visited = append(visited, t.Status)
			}

			// Then
			Expect(visited).To(Equal([]transaction.Status{
				transaction.StatusDraft, transaction.StatusSubmitted, transaction.StatusUnderReview,
				transaction.StatusApproved, transaction.StatusCompleted,
			}))
			Expect(histories).To(HaveLen(4))
			for i, h := range histories {
				Expect(h.OldStatus).To(Equal(visited[i]))
				Expect(h.NewStatus).To(Equal(visited[i+1]))
			}
			Expect(t.SubmissionDate).To(HaveValue(Equal(now)))
			Expect(t.ReviewStartDate).To(HaveValue(Equal(now.Add(time.Minute))))
			Expect(t.CompletionDate).To(HaveValue(Equal(now.Add(3 * time.Minute))))
			Expect(t.RejectionDate).To(BeNil())
		})
	})

	Describe("scenarios", func() {
		It("submits a draft with a submission date and one notification for the owner", func() {
			d, err := transaction.ApplyTransition(txIn(transaction.StatusDraft), transaction.Patch{Status: transaction.StatusSubmitted}, citizen, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(d.Transaction.Status).To(Equal(transaction.StatusSubmitted))
			Expect(d.Transaction.SubmissionDate).To(HaveValue(Equal(now)))
			Expect(d.Effects.History.OldStatus).To(Equal(transaction.StatusDraft))
			Expect(d.Effects.History.NewStatus).To(Equal(transaction.StatusSubmitted))
			Expect(d.Effects.Notifications).To(HaveLen(1))
			Expect(d.Effects.Notifications[0].UserID).To(Equal("U1"))
			Expect(d.Effects.Notifications[0].Link).To(Equal("/transactions/11111111-1111-1111-1111-111111111111"))
		})

		It("refuses to reject a submitted transaction directly", func() {
			_, err := transaction.ApplyTransition(txIn(transaction.StatusSubmitted), transaction.Patch{
				Status:          transaction.StatusRejected,
				RejectionReason: null.StringFrom("missing ID"),
			}, employee, now)

			Expect(err).To(MatchError(internal.NewInvalidTransitionError("submitted", "rejected")))
		})

		It("rejects from under review with the reason and a rejection date", func() {
			d, err := transaction.ApplyTransition(txIn(transaction.StatusUnderReview), transaction.Patch{
				Status:            transaction.StatusRejected,
				RejectionReason:   null.StringFrom("missing ID"),
				RejectionCategory: null.StringFrom("documents"),
			}, employee, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(d.Transaction.RejectionReason).To(HaveValue(Equal("missing ID")))
			Expect(d.Transaction.RejectionDate).To(HaveValue(Equal(now)))
			Expect(d.Effects.History.Changes).To(HaveKeyWithValue("rejection_reason", "missing ID"))
			Expect(d.Effects.Notifications).To(HaveLen(1))
			Expect(d.Columns()).To(HaveKeyWithValue("status", "rejected"))
		})

		It("keeps set-once timestamps when an edge is revisited", func() {
			earlier := now.Add(-48 * time.Hour)
			in := txIn(transaction.StatusUnderReview)
			in.ReviewStartDate = &earlier

			d, err := transaction.ApplyTransition(in, transaction.Patch{Status: transaction.StatusPendingDocuments}, employee, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Transaction.ReviewStartDate).To(HaveValue(Equal(earlier)))
		})

		It("does not notify on start of review or cancellation", func() {
			d, err := transaction.ApplyTransition(txIn(transaction.StatusSubmitted), transaction.Patch{Status: transaction.StatusUnderReview}, employee, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Effects.Notifications).To(BeEmpty())

			d, err = transaction.ApplyTransition(txIn(transaction.StatusDraft), transaction.Patch{Status: transaction.StatusCancelled}, citizen, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Effects.Notifications).To(BeEmpty())
		})
	})

	Describe("field-only patches", func() {
		It("lets staff update notes without touching status", func() {
			d, err := transaction.ApplyTransition(txIn(transaction.StatusCompleted), transaction.Patch{
				InternalNotes: null.StringFrom("archived"),
			}, employee, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(d.StatusChanged()).To(BeFalse())
			Expect(d.Transaction.InternalNotes).To(HaveValue(Equal("archived")))
			Expect(d.Effects.Notifications).To(BeEmpty())
			cols := d.Columns()
			Expect(cols).NotTo(HaveKey("status"))
			Expect(cols).To(HaveKey("internal_notes"))
			Expect(cols).To(HaveKey("updated_at"))
		})

		It("forbids citizens", func() {
			_, err := transaction.ApplyTransition(txIn(transaction.StatusDraft), transaction.Patch{
				Notes: null.StringFrom("mine"),
			}, citizen, now)
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("requires at least one field", func() {
			_, err := transaction.ApplyTransition(txIn(transaction.StatusDraft), transaction.Patch{}, employee, now)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("only accepts a rejection reason on a rejected transaction", func() {
			_, err := transaction.ApplyTransition(txIn(transaction.StatusUnderReview), transaction.Patch{
				RejectionReason: null.StringFrom("late"),
			}, employee, now)
			Expect(err).To(HaveOccurred())

			d, err := transaction.ApplyTransition(txIn(transaction.StatusRejected), transaction.Patch{
				RejectionReason: null.StringFrom("late"),
			}, employee, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Transaction.RejectionReason).To(HaveValue(Equal("late")))
		})
	})
})
