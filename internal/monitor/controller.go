package monitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// State — наблюдаемое состояние монитора.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Controller управляет жизненным циклом процесса монитора через PID-файл.
// Файл — единственный источник истины о запущенном инстансе: второй
// монитор на той же машине стартовать не сможет. Формат файла:
// "<pid> <state>".
type Controller struct {
	pidPath string
	log     *log.Entry
}

// NewController создаёт контроллер над указанным PID-файлом.
func NewController(pidPath string, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.WithField("component", "monitor_controller")
	}
	return &Controller{pidPath: pidPath, log: logger}
}

// Acquire регистрирует текущий процесс как монитор в состоянии starting.
// Живой PID-файл означает уже работающий монитор; протухший файл от
// умершего процесса молча замещается.
func (c *Controller) Acquire() error {
	if pid, _, alive := c.read(); alive {
		return fmt.Errorf("%w: pid %d", domain.ErrMonitorAlreadyRunning, pid)
	}

	pid := os.Getpid()
	if err := c.write(pid, StateStarting); err != nil {
		return err
	}

	c.log.WithFields(log.Fields{"pid": pid, "pid_file": c.pidPath}).Info("monitor pid registered")
	return nil
}

// MarkRunning переводит монитор из starting в running. Вызывается после
// успешной инициализации, перед первым тиком.
func (c *Controller) MarkRunning() error {
	return c.write(os.Getpid(), StateRunning)
}

// Release снимает регистрацию монитора. Отсутствующий файл не ошибка.
func (c *Controller) Release() error {
	if err := os.Remove(c.pidPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file %s: %w", c.pidPath, err)
	}
	return nil
}

// Status возвращает состояние монитора и PID живого процесса, если есть.
func (c *Controller) Status() (State, int) {
	if pid, state, alive := c.read(); alive {
		return state, pid
	}
	return StateStopped, 0
}

// Stop переводит монитор в stopping и посылает ему SIGTERM. Монитор
// завершает текущий цикл и выходит сам; контроллер не ждёт завершения.
func (c *Controller) Stop() error {
	pid, _, alive := c.read()
	if !alive {
		return domain.ErrMonitorNotRunning
	}

	if err := c.write(pid, StateStopping); err != nil {
		c.log.WithError(err).Warn("pid file state not updated")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find monitor process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal monitor process %d: %w", pid, err)
	}

	c.log.WithField("pid", pid).Info("stop signal sent to monitor")
	return nil
}

func (c *Controller) write(pid int, state State) error {
	body := fmt.Sprintf("%d %s", pid, state)
	if err := os.WriteFile(c.pidPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write pid file %s: %w", c.pidPath, err)
	}
	return nil
}

// read читает PID-файл и проверяет, жив ли процесс. Нечитаемый или
// протухший файл трактуется как остановленный монитор.
func (c *Controller) read() (int, State, bool) {
	raw, err := os.ReadFile(c.pidPath)
	if err != nil {
		return 0, StateStopped, false
	}

	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, StateStopped, false
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		c.log.WithField("pid_file", c.pidPath).Warn("pid file is malformed, treating monitor as stopped")
		return 0, StateStopped, false
	}

	state := StateRunning
	if len(fields) > 1 {
		switch State(fields[1]) {
		case StateStarting, StateRunning, StateStopping:
			state = State(fields[1])
		}
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, StateStopped, false
	}
	// Сигнал 0 проверяет существование процесса без воздействия на него.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, StateStopped, false
	}
	return pid, state, true
}
