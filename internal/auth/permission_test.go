package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
)

var _ = ginkgo.Describe("Authorize", func() {
	citizen := user.Actor{ID: "c-1", Role: user.RoleCitizen}
	other := user.Actor{ID: "c-2", Role: user.RoleCitizen}
	employee := user.Actor{ID: "e-1", Role: user.RoleEmployee}
	supervisor := user.Actor{ID: "s-1", Role: user.RoleSupervisor}
	admin := user.Actor{ID: "a-1", Role: user.RoleAdmin}
	advisor := user.Actor{ID: "l-1", Role: user.RoleLegalAdvisor}

	ownDraft := Resource{OwnerID: "c-1", Status: "draft"}
	ownSubmitted := Resource{OwnerID: "c-1", Status: "submitted"}

	allowedCase := func(actor user.Actor, action Action, res Resource, allowed bool) {
		err := Authorize(actor, action, res)
		if allowed {
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			return
		}
		gomega.Expect(errors.Is(err, internal.ErrForbidden)).To(gomega.BeTrue())
	}

	ginkgo.DescribeTable("citizens",
		allowedCase,
		ginkgo.Entry("create", citizen, ActionCreate, Resource{}, true),
		ginkgo.Entry("list", citizen, ActionList, Resource{}, true),
		ginkgo.Entry("read own", citizen, ActionRead, ownSubmitted, true),
		ginkgo.Entry("read other's", other, ActionRead, ownSubmitted, false),
		ginkgo.Entry("submit own", citizen, ActionSubmit, ownDraft, true),
		ginkgo.Entry("submit other's", other, ActionSubmit, ownDraft, false),
		ginkgo.Entry("delete own draft", citizen, ActionDelete, ownDraft, true),
		ginkgo.Entry("delete own submitted", citizen, ActionDelete, ownSubmitted, false),
		ginkgo.Entry("delete other's draft", other, ActionDelete, ownDraft, false),
		ginkgo.Entry("cancel own draft", citizen, ActionCancel, ownDraft, true),
		ginkgo.Entry("generic update", citizen, ActionUpdate, ownDraft, false),
	)

	ginkgo.DescribeTable("staff",
		allowedCase,
		ginkgo.Entry("employee reads", employee, ActionRead, ownSubmitted, true),
		ginkgo.Entry("employee updates", employee, ActionUpdate, ownSubmitted, true),
		ginkgo.Entry("employee cannot create", employee, ActionCreate, Resource{}, false),
		ginkgo.Entry("employee cannot submit", employee, ActionSubmit, ownDraft, false),
		ginkgo.Entry("employee cannot delete", employee, ActionDelete, ownDraft, false),
		ginkgo.Entry("supervisor lists", supervisor, ActionList, Resource{}, true),
		ginkgo.Entry("supervisor cannot delete", supervisor, ActionDelete, ownDraft, false),
		ginkgo.Entry("admin deletes any", admin, ActionDelete, ownSubmitted, true),
		ginkgo.Entry("admin cancels any", admin, ActionCancel, ownSubmitted, true),
		ginkgo.Entry("admin cannot create", admin, ActionCreate, Resource{}, false),
	)

	ginkgo.It("denies every transaction action to legal advisors", func() {
		for _, a := range []Action{ActionCreate, ActionRead, ActionSubmit, ActionUpdate, ActionDelete, ActionList, ActionCancel} {
			gomega.Expect(Authorize(advisor, a, ownDraft)).To(gomega.MatchError(internal.ErrForbidden))
		}
	})

	ginkgo.It("denies an unknown role", func() {
		gomega.Expect(Authorize(user.Actor{ID: "x", Role: "guest"}, ActionRead, ownDraft)).To(gomega.HaveOccurred())
	})
})

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var (
		rbac *RBACAuthorization
		ok   http.Handler
	)

	ginkgo.BeforeEach(func() {
		rbac = NewRBACAuthorization(nil)
		ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	serve := func(h http.Handler, actor *user.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions/export", nil)
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	ginkgo.It("returns 401 without an actor", func() {
		gomega.Expect(serve(rbac.RequireStaff()(ok), nil)).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("returns 403 for a role outside the list", func() {
		actor := user.Actor{ID: "c-1", Role: user.RoleCitizen}
		gomega.Expect(serve(rbac.RequireStaff()(ok), &actor)).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("passes a permitted role through", func() {
		actor := user.Actor{ID: "s-1", Role: user.RoleSupervisor}
		gomega.Expect(serve(rbac.RequireStaff()(ok), &actor)).To(gomega.Equal(http.StatusNoContent))
	})
})
