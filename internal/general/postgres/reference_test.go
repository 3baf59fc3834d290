package postgres

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	refDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/reference"
	"github.com/frahmantamala/muamalati/internal/general"
)

var _ = Describe("ReferenceRepository", func() {
	var (
		db   *gorm.DB
		repo *ReferenceRepository
		ctx  context.Context
	)

	deactivate := func(model interface{}, id int64) {
		Expect(db.Model(model).Where("id = ?", id).Update("is_active", false).Error).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(
			&refDatamodel.Province{},
			&refDatamodel.Department{},
			&refDatamodel.TransactionType{},
			&refDatamodel.RejectionReason{},
		)).To(Succeed())
		repo = NewReferenceRepository(db)

		Expect(db.Create(&[]refDatamodel.Province{
			{ID: 1, NameAr: "بغداد", NameEn: "Baghdad", Code: "BGD"},
			{ID: 2, NameAr: "البصرة", NameEn: "Basra", Code: "BSR"},
			{ID: 3, NameAr: "نينوى", NameEn: "Nineveh", Code: "NIN"},
		}).Error).To(Succeed())
		deactivate(&refDatamodel.Province{}, 3)

		Expect(db.Create(&[]refDatamodel.Department{
			{ID: 10, NameAr: "مديرية الجوازات", Type: "passports", ProvinceID: 1},
			{ID: 11, NameAr: "مديرية الأحوال المدنية", Type: "civil_status", ProvinceID: 1},
			{ID: 12, NameAr: "مديرية الجوازات في البصرة", Type: "passports", ProvinceID: 2},
			{ID: 13, NameAr: "دائرة مغلقة", Type: "passports", ProvinceID: 2},
		}).Error).To(Succeed())
		deactivate(&refDatamodel.Department{}, 13)

		Expect(db.Create(&[]refDatamodel.TransactionType{
			{ID: 20, NameAr: "إصدار جواز سفر", DepartmentType: "passports", BasePrice: decimal.NewFromInt(25000), RequiredDocuments: datatypes.JSON(`["national_id"]`)},
			{ID: 21, NameAr: "البطاقة الوطنية", DepartmentType: "civil_status", BasePrice: decimal.NewFromInt(5000)},
		}).Error).To(Succeed())

		Expect(db.Create(&[]refDatamodel.RejectionReason{
			{ID: 30, Category: "documents", ReasonAr: "مستند ناقص"},
			{ID: 31, Category: "data", ReasonAr: "بيانات غير صحيحة"},
			{ID: 32, Category: "documents", ReasonAr: "صورة غير واضحة"},
		}).Error).To(Succeed())
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	It("lists only active provinces ordered by arabic name", func() {
		provinces, err := repo.Provinces(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(provinces).To(HaveLen(2))
		Expect(provinces[0].NameAr).To(Equal("البصرة"))
		Expect(provinces[1].NameAr).To(Equal("بغداد"))
	})

	It("joins the province name onto departments", func() {
		departments, err := repo.Departments(ctx, general.DepartmentFilter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).To(HaveLen(3))
		for _, d := range departments {
			Expect(d.ProvinceName).NotTo(BeNil())
			Expect(d.IsActive).To(BeTrue())
		}
	})

	It("filters departments by province and type", func() {
		province := int64(2)
		departments, err := repo.Departments(ctx, general.DepartmentFilter{ProvinceID: &province, Type: "passports"})
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).To(HaveLen(1))
		Expect(departments[0].ID).To(Equal(int64(12)))
		Expect(*departments[0].ProvinceName).To(Equal("البصرة"))
	})

	It("filters transaction types by department type", func() {
		types, err := repo.TransactionTypes(ctx, "passports")
		Expect(err).NotTo(HaveOccurred())
		Expect(types).To(HaveLen(1))
		Expect(types[0].BasePrice.Equal(decimal.NewFromInt(25000))).To(BeTrue())

		all, err := repo.TransactionTypes(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
	})

	It("orders rejection reasons by category and filters by it", func() {
		reasons, err := repo.RejectionReasons(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(reasons).To(HaveLen(3))
		Expect(reasons[0].Category).To(Equal("data"))

		docs, err := repo.RejectionReasons(ctx, "documents")
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))
	})
})
