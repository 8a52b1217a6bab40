package config

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DefaultFile — имя файла конфигурации, который пишет админ-панель.
const DefaultFile = "system_config.json"

// MaxSlots — максимум временных слотов обработки в сутки.
const MaxSlots = 4

// Account описывает учётные данные одного аккаунта маркетплейса.
type Account struct {
	Name         string
	ClientID     string
	ClientSecret string
	Active       bool
}

// EmailConfig — настройки SMTP для сводных писем.
type EmailConfig struct {
	Enabled         bool
	SMTPHost        string
	SMTPPort        int
	UseTLS          bool
	Username        string
	Password        string
	From            string
	Recipients      []string
	SubjectTemplate string
	BodyTemplate    string
}

// SFTPConfig — настройки удалённого хранилища батчей и лейблов.
type SFTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	RemoteBatchDir string
	RemoteLabelDir string
}

// WeeklySchedule — карта включённых дней недели.
type WeeklySchedule struct {
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
}

// EnabledOn сообщает, разрешена ли обработка в указанный день недели.
func (w WeeklySchedule) EnabledOn(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	default:
		return false
	}
}

// ScheduleConfig — снимок расписания на один цикл. Конвейер читает его
// целиком в начале тика и никогда не применяет изменения посреди цикла.
type ScheduleConfig struct {
	// ProcessingTimes — до четырёх слотов HH:MM; пустая строка отключает слот.
	ProcessingTimes []string
	Weekly          WeeklySchedule
	LastUpdated     time.Time
}

// Slots возвращает только непустые, валидные слоты.
func (s ScheduleConfig) Slots() []string {
	var out []string
	for _, t := range s.ProcessingTimes {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SystemConfig агрегирует всю конфигурацию системы.
type SystemConfig struct {
	Schedule    ScheduleConfig
	Email       EmailConfig
	SFTP        SFTPConfig
	Accounts    []Account
	DefaultShop string
}

// ActiveAccounts возвращает только активные аккаунты.
func (c SystemConfig) ActiveAccounts() []Account {
	var out []Account
	for _, acc := range c.Accounts {
		if acc.Active {
			out = append(out, acc)
		}
	}
	return out
}

// Default возвращает конфигурацию по умолчанию: два слота, будние дни
// включены, выходные выключены.
func Default() SystemConfig {
	return SystemConfig{
		Schedule: ScheduleConfig{
			ProcessingTimes: []string{"08:00", "15:01", "", ""},
			Weekly: WeeklySchedule{
				Monday:    true,
				Tuesday:   true,
				Wednesday: true,
				Thursday:  true,
				Friday:    true,
				Saturday:  false,
				Sunday:    false,
			},
		},
		Email: EmailConfig{
			Enabled:         false,
			SMTPPort:        465,
			SubjectTemplate: "Bol.com orders summary: [total_orders] orders need to be processed",
			BodyTemplate:    "Today, [total_orders] orders need to be processed.\nThis number is based on the orders included in the generated batch files.",
		},
		SFTP: SFTPConfig{
			Port: 22,
		},
		DefaultShop: "Trivium",
	}
}

// Load читает конфигурацию из JSON-файла через viper. Загрузка терпима к
// ошибкам: отсутствующий файл или сломанное поле не валят весь процесс,
// вместо него подставляется значение по умолчанию.
func Load(path string, logger *log.Entry) SystemConfig {
	if logger == nil {
		logger = log.WithField("component", "config")
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		logger.WithError(err).WithField("path", path).Warn("config file not loaded, using defaults")
		return cfg
	}

	cfg.Schedule = readSchedule(v, cfg.Schedule, logger)
	cfg.Email = readEmail(v, cfg.Email)
	cfg.SFTP = readSFTP(v, cfg.SFTP)
	cfg.Accounts = readAccounts(v, logger)
	if shop := v.GetString("shop_mapping.default"); shop != "" {
		cfg.DefaultShop = shop
	}

	return cfg
}

func readSchedule(v *viper.Viper, def ScheduleConfig, logger *log.Entry) ScheduleConfig {
	out := def

	if v.IsSet("processing_times") {
		raw := v.GetStringSlice("processing_times")
		out.ProcessingTimes = NormalizeSlots(raw, logger)
	}

	if v.IsSet("weekly_schedule") {
		out.Weekly = WeeklySchedule{
			Monday:    getBoolDefault(v, "weekly_schedule.monday", def.Weekly.Monday),
			Tuesday:   getBoolDefault(v, "weekly_schedule.tuesday", def.Weekly.Tuesday),
			Wednesday: getBoolDefault(v, "weekly_schedule.wednesday", def.Weekly.Wednesday),
			Thursday:  getBoolDefault(v, "weekly_schedule.thursday", def.Weekly.Thursday),
			Friday:    getBoolDefault(v, "weekly_schedule.friday", def.Weekly.Friday),
			Saturday:  getBoolDefault(v, "weekly_schedule.saturday", def.Weekly.Saturday),
			Sunday:    getBoolDefault(v, "weekly_schedule.sunday", def.Weekly.Sunday),
		}
	}

	if raw := v.GetString("last_updated"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out.LastUpdated = ts
		}
	}

	return out
}

func readEmail(v *viper.Viper, def EmailConfig) EmailConfig {
	out := def
	out.Enabled = getBoolDefault(v, "email.enabled", def.Enabled)
	if s := v.GetString("email.smtp_host"); s != "" {
		out.SMTPHost = s
	}
	if p := v.GetInt("email.smtp_port"); p > 0 {
		out.SMTPPort = p
	}
	out.UseTLS = getBoolDefault(v, "email.use_tls", def.UseTLS)
	if s := v.GetString("email.username"); s != "" {
		out.Username = s
	}
	if s := v.GetString("email.password"); s != "" {
		out.Password = s
	}
	if s := v.GetString("email.from"); s != "" {
		out.From = s
	}
	if rs := v.GetStringSlice("email.recipients"); len(rs) > 0 {
		out.Recipients = rs
	}
	if s := v.GetString("email.subject_template"); s != "" {
		out.SubjectTemplate = s
	}
	if s := v.GetString("email.body_template"); s != "" {
		out.BodyTemplate = s
	}
	return out
}

func readSFTP(v *viper.Viper, def SFTPConfig) SFTPConfig {
	out := def
	if s := v.GetString("ftp.host"); s != "" {
		out.Host = s
	}
	if p := v.GetInt("ftp.port"); p > 0 {
		out.Port = p
	}
	if s := v.GetString("ftp.username"); s != "" {
		out.Username = s
	}
	if s := v.GetString("ftp.password"); s != "" {
		out.Password = s
	}
	if s := v.GetString("ftp.remote_batch_dir"); s != "" {
		out.RemoteBatchDir = s
	}
	if s := v.GetString("ftp.remote_label_dir"); s != "" {
		out.RemoteLabelDir = s
	}
	return out
}

func readAccounts(v *viper.Viper, logger *log.Entry) []Account {
	var raw []map[string]interface{}
	if err := v.UnmarshalKey("bol_accounts", &raw); err != nil {
		logger.WithError(err).Warn("bol_accounts malformed, no accounts loaded")
		return nil
	}

	var accounts []Account
	for _, entry := range raw {
		acc := Account{
			Name:         asString(entry["name"]),
			ClientID:     asString(entry["client_id"]),
			ClientSecret: asString(entry["client_secret"]),
			Active:       asBool(entry["active"]),
		}
		if acc.Name == "" || acc.ClientID == "" || acc.ClientSecret == "" {
			logger.WithField("account", acc.Name).Warn("skipping account with missing credentials")
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts
}

// NormalizeSlots приводит слоты к каноническому виду HH:MM. Невалидный
// слот превращается в пустую строку (отключён), лишние слоты отбрасываются.
func NormalizeSlots(raw []string, logger *log.Entry) []string {
	out := make([]string, 0, MaxSlots)
	for i, t := range raw {
		if i >= MaxSlots {
			if logger != nil {
				logger.WithField("extra", len(raw)-MaxSlots).Warn("too many processing times, extra slots ignored")
			}
			break
		}
		out = append(out, NormalizeTime(t))
	}
	for len(out) < MaxSlots {
		out = append(out, "")
	}
	return out
}

// NormalizeTime возвращает HH:MM (24h) или пустую строку для невалидного ввода.
func NormalizeTime(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return ""
	}
	return parsed.Format("15:04")
}

func getBoolDefault(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	return v.GetBool(key)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Summary возвращает краткое описание конфигурации для логов.
func (c SystemConfig) Summary() string {
	return fmt.Sprintf("slots=%v accounts=%d email=%t sftp=%s",
		c.Schedule.Slots(), len(c.ActiveAccounts()), c.Email.Enabled, c.SFTP.Host)
}
