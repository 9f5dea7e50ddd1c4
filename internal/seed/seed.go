package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
)

const (
	AdminEmail    = "admin@clinica.local"
	adminPassword = "Admin123!"
	profPassword  = "ChangeMe123!"
)

// Run cria o admin, dois profissionais (um com login) e dois pacientes. Idempotente: se já existe
// o admin, não faz nada.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	users := repo.NewUserStore(db)
	if _, err := users.ByEmail(ctx, AdminEmail); err == nil {
		log.Info("seed: admin já existe, nada a fazer")
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repo.NewUserStore(tx)
		profs := repo.NewProfessionalStore(tx)
		patients := repo.NewPatientStore(tx)

		adminHash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, &repo.User{Email: AdminEmail, PasswordHash: adminHash, FullName: "Administrador", Role: auth.RoleAdmin}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		carla := &repo.Professional{FullName: "Dra. Carla Lima", Specialty: repo.StrPtr("Psicologia"), Registration: repo.StrPtr("CRP 11/12345"), Color: repo.StrPtr("#4f46e5")}
		rafael := &repo.Professional{FullName: "Dr. Rafael Costa", Specialty: repo.StrPtr("Fonoaudiologia"), Registration: repo.StrPtr("CRFa 2-9876"), Color: repo.StrPtr("#059669")}
		for _, p := range []*repo.Professional{carla, rafael} {
			if err := profs.Create(ctx, p); err != nil {
				return fmt.Errorf("seed professional: %w", err)
			}
		}
		profHash, err := auth.HashPassword(profPassword)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, &repo.User{
			Email: "carla@clinica.local", PasswordHash: profHash, FullName: carla.FullName,
			Role: auth.RoleProfessional, ProfessionalID: &carla.ID,
		}); err != nil {
			return fmt.Errorf("seed professional user: %w", err)
		}

		for _, p := range []*repo.Patient{
			{FullName: "Ana Souza", BirthDate: caldate.MustParse("1990-05-10"), CPF: repo.StrPtr("52998224725"), Phone: repo.StrPtr("+5585999990001")},
			{FullName: "Bruno Alves", BirthDate: caldate.MustParse("2015-09-22"), Phone: repo.StrPtr("+5585999990002")},
		} {
			if err := patients.Create(ctx, p); err != nil {
				return fmt.Errorf("seed patient: %w", err)
			}
		}
		log.Info("seed concluído", zap.String("admin", AdminEmail))
		return nil
	})
}
