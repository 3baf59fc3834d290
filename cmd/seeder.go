package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/frahmantamala/muamalati/internal/core/datamodel/reference"
	datauser "github.com/frahmantamala/muamalati/internal/core/datamodel/user"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with reference data and test accounts",
	Long:  `Seed provinces, departments, transaction types, rejection reasons and one test account per role.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	},
}

// seedTables is ordered children first.
var seedTables = []string{
	"audit_log", "email_outbox", "notifications",
	"transaction_documents", "transaction_history", "transactions",
	"users", "rejection_reasons", "transaction_types", "departments", "provinces",
}

type seedAccount struct {
	Email    string
	Password string
	FullName string
	Role     user.Role
	Staff    bool
}

var seedAccounts = []seedAccount{
	{Email: "admin@moamalaty.iq", Password: "Admin123!", FullName: "مدير النظام", Role: user.RoleAdmin},
	{Email: "supervisor@gov.iq", Password: "Test123!", FullName: "المشرف العام", Role: user.RoleSupervisor, Staff: true},
	{Email: "employee@gov.iq", Password: "Test123!", FullName: "موظف حكومي", Role: user.RoleEmployee, Staff: true},
	{Email: "lawyer@moamalaty.iq", Password: "Test123!", FullName: "مستشار قانوني", Role: user.RoleLegalAdvisor},
	{Email: "citizen@test.com", Password: "Test123!", FullName: "أحمد محمد علي", Role: user.RoleCitizen},
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadConfig(".")
	if err != nil {
		return err
	}
	lg := logger.Configure(logger.Options{Env: config.App.Env, Level: config.Observability.Logging.Level})

	db, err := initDB(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gdb, err := initGorm(db, config.App)
	if err != nil {
		return err
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clearData {
			for _, table := range seedTables {
				if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
			lg.Info("cleared existing data", "tables", len(seedTables))
		}

		provinces, err := seedProvinces(tx)
		if err != nil {
			return err
		}
		departments, err := seedDepartments(tx, provinces)
		if err != nil {
			return err
		}
		if err := seedTransactionTypes(tx); err != nil {
			return err
		}
		if err := seedRejectionReasons(tx); err != nil {
			return err
		}
		return seedUsers(tx, departments["civil_status"], config.Security.BCryptCost, lg)
	})
}

func seedProvinces(tx *gorm.DB) (map[string]int64, error) {
	rows := []reference.Province{
		{NameAr: "بغداد", NameEn: "Baghdad", Code: "BGD"},
		{NameAr: "البصرة", NameEn: "Basra", Code: "BSR"},
		{NameAr: "نينوى", NameEn: "Nineveh", Code: "NIN"},
		{NameAr: "أربيل", NameEn: "Erbil", Code: "ERB"},
		{NameAr: "النجف", NameEn: "Najaf", Code: "NJF"},
		{NameAr: "كربلاء", NameEn: "Karbala", Code: "KRB"},
		{NameAr: "بابل", NameEn: "Babylon", Code: "BAB"},
		{NameAr: "الأنبار", NameEn: "Anbar", Code: "ANB"},
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		var out reference.Province
		if err := tx.Where(reference.Province{Code: row.Code}).Attrs(row).FirstOrCreate(&out).Error; err != nil {
			return nil, fmt.Errorf("seed province %s: %w", row.Code, err)
		}
		ids[row.Code] = out.ID
	}
	return ids, nil
}

// seedDepartments returns department ids by type for the Baghdad branch.
func seedDepartments(tx *gorm.DB, provinces map[string]int64) (map[string]int64, error) {
	baghdad := provinces["BGD"]
	rows := []reference.Department{
		{NameAr: "دائرة الأحوال المدنية", NameEn: "Civil Status Directorate", Type: "civil_status", ProvinceID: baghdad},
		{NameAr: "مديرية الجوازات", NameEn: "Passports Directorate", Type: "passports", ProvinceID: baghdad},
		{NameAr: "مديرية المرور العامة", NameEn: "General Traffic Directorate", Type: "traffic", ProvinceID: baghdad},
		{NameAr: "دائرة التسجيل العقاري", NameEn: "Real Estate Registration", Type: "real_estate", ProvinceID: baghdad},
		{NameAr: "دائرة الأحوال المدنية", NameEn: "Civil Status Directorate", Type: "civil_status", ProvinceID: provinces["BSR"]},
	}

	ids := make(map[string]int64)
	for _, row := range rows {
		var out reference.Department
		where := reference.Department{NameAr: row.NameAr, ProvinceID: row.ProvinceID}
		if err := tx.Where(where).Attrs(row).FirstOrCreate(&out).Error; err != nil {
			return nil, fmt.Errorf("seed department %s: %w", row.NameEn, err)
		}
		if row.ProvinceID == baghdad {
			ids[row.Type] = out.ID
		}
	}
	return ids, nil
}

func seedTransactionTypes(tx *gorm.DB) error {
	rows := []reference.TransactionType{
		{
			NameAr: "إصدار البطاقة الوطنية", NameEn: "National ID Issuance", DepartmentType: "civil_status",
			RequiredDocuments: datatypes.JSON(`["شهادة الجنسية","بطاقة السكن","صورة شخصية"]`),
			BasePrice:         decimal.NewFromInt(5000), EstimatedDays: 7,
		},
		{
			NameAr: "تجديد جواز السفر", NameEn: "Passport Renewal", DepartmentType: "passports",
			RequiredDocuments: datatypes.JSON(`["البطاقة الوطنية","جواز السفر القديم","صورة شخصية"]`),
			BasePrice:         decimal.NewFromInt(25000), EstimatedDays: 14,
		},
		{
			NameAr: "تجديد إجازة السوق", NameEn: "Driving License Renewal", DepartmentType: "traffic",
			RequiredDocuments: datatypes.JSON(`["البطاقة الوطنية","إجازة السوق القديمة","فحص طبي"]`),
			BasePrice:         decimal.NewFromInt(15000), EstimatedDays: 5,
		},
		{
			NameAr: "نقل ملكية عقار", NameEn: "Property Ownership Transfer", DepartmentType: "real_estate",
			RequiredDocuments: datatypes.JSON(`["سند الملكية","البطاقة الوطنية للطرفين","عقد البيع"]`),
			BasePrice:         decimal.NewFromInt(50000), EstimatedDays: 30,
		},
	}

	for _, row := range rows {
		var out reference.TransactionType
		if err := tx.Where(reference.TransactionType{NameEn: row.NameEn}).Attrs(row).FirstOrCreate(&out).Error; err != nil {
			return fmt.Errorf("seed transaction type %s: %w", row.NameEn, err)
		}
	}
	return nil
}

func seedRejectionReasons(tx *gorm.DB) error {
	solution := func(s string) *string { return &s }
	rows := []reference.RejectionReason{
		{Category: "documents", ReasonAr: "المستندات المرفقة غير واضحة", ReasonEn: "Attached documents are unreadable", SolutionAr: solution("إعادة رفع المستندات بدقة أعلى")},
		{Category: "documents", ReasonAr: "مستند مطلوب غير مرفق", ReasonEn: "A required document is missing", SolutionAr: solution("إرفاق جميع المستندات المطلوبة لنوع المعاملة")},
		{Category: "data", ReasonAr: "البيانات المدخلة غير مطابقة للمستندات", ReasonEn: "Entered data does not match the documents", SolutionAr: solution("تصحيح البيانات وإعادة التقديم")},
		{Category: "eligibility", ReasonAr: "مقدم الطلب غير مستوفٍ للشروط", ReasonEn: "Applicant does not meet the requirements", SolutionAr: solution("مراجعة الدائرة المختصة للاستفسار")},
	}

	for _, row := range rows {
		var out reference.RejectionReason
		where := reference.RejectionReason{Category: row.Category, ReasonEn: row.ReasonEn}
		if err := tx.Where(where).Attrs(row).FirstOrCreate(&out).Error; err != nil {
			return fmt.Errorf("seed rejection reason %q: %w", row.ReasonEn, err)
		}
	}
	return nil
}

func seedUsers(tx *gorm.DB, departmentID int64, cost int, lg *slog.Logger) error {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	province := "بغداد"

	for _, acc := range seedAccounts {
		var existing datauser.User
		err := tx.Where("email = ?", acc.Email).Take(&existing).Error
		if err == nil {
			lg.Info("user already exists", "email", acc.Email)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup %s: %w", acc.Email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		row := datauser.User{
			ID:           uuid.NewString(),
			Email:        acc.Email,
			PasswordHash: string(hash),
			FullName:     acc.FullName,
			Role:         string(acc.Role),
			Province:     &province,
			IsActive:     true,
			IsVerified:   true,
		}
		if acc.Staff && departmentID != 0 {
			dept := departmentID
			row.DepartmentID = &dept
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create %s: %w", acc.Email, err)
		}
		lg.Info("seeded user", "email", acc.Email, "role", acc.Role)
	}
	return nil
}
