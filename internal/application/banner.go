package application

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

const (
	bannerRule     = "═══════════════════════════════════════════════════════════"
	bannerTimezone = "America/Santiago"
)

func (a *App) logBanner() {
	boot := a.logger.Named("Bootstrap")
	port := a.Port()

	boot.Info(bannerRule)
	boot.Info("✅ Aplicación iniciada correctamente",
		zap.Int("port", port),
		zap.String("stage", a.cfg.Stage),
	)
	boot.Info(fmt.Sprintf("📡 Servidor corriendo en: http://localhost:%d", port))
	boot.Info(fmt.Sprintf("🔗 API disponible en: http://localhost:%d%s", port, a.cfg.APIPrefix))
	boot.Info(fmt.Sprintf("🌍 Entorno: %s", a.cfg.Stage))
	boot.Info(fmt.Sprintf("📅 %s", formatLocalTimestamp(a.clock())))
	boot.Info(bannerRule)
}

// formatLocalTimestamp renders t the way es-ES formats a date-time
// ("19/10/2026, 9:05:07") in the Santiago timezone.
func formatLocalTimestamp(t time.Time) string {
	if loc, err := time.LoadLocation(bannerTimezone); err == nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d/%d/%d, %d:%02d:%02d",
		t.Day(), int(t.Month()), t.Year(),
		t.Hour(), t.Minute(), t.Second())
}
