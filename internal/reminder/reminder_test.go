package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"taskflow/internal/memstore"
	"taskflow/internal/task"
	"taskflow/internal/user"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    map[string][]string
	failFor map[string]bool
	calls   int
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string][]string{}, failFor: map[string]bool{}}
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFor[to] {
		return "", errors.New("carrier rejected")
	}
	s.sent[to] = append(s.sent[to], body)
	return "SM" + to, nil
}

func (s *recordingSender) count(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[to])
}

type fixture struct {
	users   *user.Manager
	tasks   *task.Manager
	current time.Time
	sender  *recordingSender
	job     *Job
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc := kolkata(t)
	f := &fixture{
		current: time.Date(2026, 1, 10, 18, 0, 0, 0, loc),
		sender:  newRecordingSender(),
	}
	clock := func() time.Time { return f.current }

	f.users = user.NewManager(memstore.NewUsers(clock))
	f.tasks = task.NewManager(memstore.NewTasks(clock), f.users)

	scanner := NewScanner(f.users, f.tasks, loc, 4)
	f.job = NewJob(scanner, NewDispatcher(f.sender, 4), WithClock(clock))
	return f
}

func (f *fixture) addUser(t *testing.T, id string, role user.Role, phone string) {
	t.Helper()
	var p *string
	if phone != "" {
		p = &phone
	}
	if _, err := f.users.UpsertSelf(context.Background(), user.Identity{UserID: id}, string(role), nil, p); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
}

func (f *fixture) addTask(t *testing.T, assignee string) *task.Task {
	t.Helper()
	tk, err := f.tasks.Create(context.Background(), task.CreateInput{Title: "Visit site A", AssignedTo: assignee, AssignedBy: "m1"})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return tk
}

func (f *fixture) postUpdate(t *testing.T, tk *task.Task, at time.Time, status string) {
	t.Helper()
	saved := f.current
	f.current = at
	defer func() { f.current = saved }()
	if _, err := f.tasks.AppendUpdate(context.Background(), tk.ID, tk.AssignedTo, "progress", &status); err != nil {
		t.Fatalf("failed to append update: %v", err)
	}
}

func recipientIDs(rs []Recipient) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.UserID)
	}
	sort.Strings(ids)
	return ids
}

func TestStartOfDay(t *testing.T) {
	loc := kolkata(t)

	// 20:00 UTC on Jan 9 is 01:30 on Jan 10 in Kolkata.
	now := time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)
	got := StartOfDay(now, loc)
	want := time.Date(2026, 1, 10, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
}

func TestIsDelinquent(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := start.Add(d)
		return &ts
	}

	tests := []struct {
		name  string
		tasks []*task.Task
		want  bool
	}{
		{name: "no tasks", tasks: nil, want: true},
		{name: "never updated", tasks: []*task.Task{{}}, want: true},
		{name: "updated yesterday", tasks: []*task.Task{{LastEmployeeUpdateAt: at(-time.Minute)}}, want: true},
		{name: "updated at midnight", tasks: []*task.Task{{LastEmployeeUpdateAt: at(0)}}, want: false},
		{name: "one of several updated", tasks: []*task.Task{{}, {LastEmployeeUpdateAt: at(time.Hour)}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDelinquent(tt.tasks, start); got != tt.want {
				t.Errorf("IsDelinquent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanner_Scan(t *testing.T) {
	f := newFixture(t)

	f.addUser(t, "m1", user.RoleManager, "+15559999")
	f.addUser(t, "stale", user.RoleEmployee, "+15550001")
	f.addUser(t, "fresh", user.RoleEmployee, "+15550002")
	f.addUser(t, "idle", user.RoleEmployee, "+15550003")
	f.addUser(t, "silent", user.RoleEmployee, "")
	f.addUser(t, "never", user.RoleEmployee, "+15550004")

	f.postUpdate(t, f.addTask(t, "stale"), f.current.Add(-24*time.Hour), "in_progress")
	f.postUpdate(t, f.addTask(t, "fresh"), f.current.Add(-10*time.Minute), "in_progress")
	f.addTask(t, "silent")
	f.addTask(t, "never")

	recipients, err := f.job.Preview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := recipientIDs(recipients)
	want := []string{"idle", "never", "stale"}
	if len(got) != len(want) {
		t.Fatalf("expected recipients %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected recipients %v, got %v", want, got)
			break
		}
	}
}

type failingTasks struct{}

func (failingTasks) ListByAssignee(context.Context, string) ([]*task.Task, error) {
	return nil, errors.New("store unavailable")
}

type staticEmployees []*user.User

func (s staticEmployees) ListReachableEmployees(context.Context) ([]*user.User, error) {
	return s, nil
}

func TestJob_ScanErrorAbortsDispatch(t *testing.T) {
	phone := "+15550001"
	employees := staticEmployees{{ID: "e1", Role: user.RoleEmployee, Phone: &phone}}
	sender := newRecordingSender()

	job := NewJob(NewScanner(employees, failingTasks{}, time.UTC, 1), NewDispatcher(sender, 1))
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected scan error")
	}
	if sender.calls != 0 {
		t.Errorf("expected no sends after a failed scan, got %d", sender.calls)
	}
}

func TestJob_ReminderStopsAfterUpdate(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "e1", user.RoleEmployee, "+15550001")
	tk := f.addTask(t, "e1")

	report, err := f.job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Sent != 1 || f.sender.count("+15550001") != 1 {
		t.Fatalf("expected one reminder, got report %+v", report)
	}
	if body := f.sender.sent["+15550001"][0]; body != Message {
		t.Errorf("unexpected body %q", body)
	}

	f.postUpdate(t, tk, f.current.Add(-time.Minute), "in_progress")

	report, err = f.job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Recipients != 0 || f.sender.count("+15550001") != 1 {
		t.Errorf("expected no further reminders, got report %+v", report)
	}
}

func TestDispatcher_FailureDoesNotStopOthers(t *testing.T) {
	sender := newRecordingSender()
	sender.failFor["+15550002"] = true

	recipients := []Recipient{
		{UserID: "a", Phone: "+15550001"},
		{UserID: "b", Phone: "+15550002"},
		{UserID: "c", Phone: "+15550003"},
	}

	report := NewDispatcher(sender, 2).Dispatch(context.Background(), recipients)

	if report.Recipients != 3 || report.Sent != 2 || report.Failed != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].UserID != "b" {
		t.Errorf("expected failure for b, got %+v", report.Failures)
	}
	if sender.count("+15550001") != 1 || sender.count("+15550003") != 1 {
		t.Error("expected a and c to receive a reminder")
	}
}

type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func (s *blockingSender) Name() string { return "blocking" }

func (s *blockingSender) Send(context.Context, string, string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	s.once.Do(func() { close(s.started) })
	<-s.release
	return "SM1", nil
}

func TestJob_ConcurrentRunsShareOneRun(t *testing.T) {
	phone := "+15550001"
	employees := staticEmployees{{ID: "e1", Role: user.RoleEmployee, Phone: &phone}}
	tasks := memstore.NewTasks(nil)
	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}

	job := NewJob(NewScanner(employees, tasks, time.UTC, 1), NewDispatcher(sender, 1))

	var wg sync.WaitGroup
	reports := make([]*Report, 2)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := job.Run(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			reports[i] = r
		}()
		if i == 0 {
			<-sender.started
		}
	}

	time.Sleep(50 * time.Millisecond)
	close(sender.release)
	wg.Wait()

	if sender.calls != 1 {
		t.Errorf("expected one send for overlapping runs, got %d", sender.calls)
	}
	if reports[0] != reports[1] {
		t.Error("expected both callers to receive the same report")
	}
}

func TestJob_RunHonorsCallerCancel(t *testing.T) {
	phone := "+15550001"
	employees := staticEmployees{{ID: "e1", Role: user.RoleEmployee, Phone: &phone}}
	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	job := NewJob(NewScanner(employees, memstore.NewTasks(nil), time.UTC, 1), NewDispatcher(sender, 1))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sender.started
		cancel()
	}()

	if _, err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	close(sender.release)
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) Run(context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &Report{}, nil
}

func TestScheduler(t *testing.T) {
	loc := kolkata(t)

	s, err := NewScheduler(&countingRunner{}, 18, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Spec() != "0 18 * * *" {
		t.Errorf("unexpected spec %q", s.Spec())
	}

	next := s.Next().In(loc)
	if next.Hour() != 18 || next.Minute() != 0 {
		t.Errorf("expected next trigger at 18:00 local, got %v", next)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
}

func TestScheduler_InvalidHour(t *testing.T) {
	for _, hour := range []int{-1, 24} {
		if _, err := NewScheduler(&countingRunner{}, hour, time.UTC); err == nil {
			t.Errorf("expected error for hour %d", hour)
		}
	}
}

func TestScheduler_TriggerRunsJob(t *testing.T) {
	r := &countingRunner{}
	s, err := NewScheduler(r, 9, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.trigger()
	if r.calls != 1 {
		t.Errorf("expected one run, got %d", r.calls)
	}
}

func TestScheduler_NextBeforeStartUsesLocation(t *testing.T) {
	// Fixed zone, independent of tzdata and the host TZ.
	loc := time.FixedZone("UTC+14", 14*60*60)

	s, err := NewScheduler(&countingRunner{}, 18, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := s.Next()
	if got := before.In(loc); got.Hour() != 18 || got.Minute() != 0 {
		t.Errorf("expected 18:00 in the configured zone before Start, got %v", got)
	}
	if d := time.Until(before); d <= 0 || d > 24*time.Hour {
		t.Errorf("expected next trigger within a day, got %v", d)
	}

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	if after := s.Next(); !after.Equal(before) {
		t.Errorf("expected Next to agree before and after Start: %v vs %v", before, after)
	}
}

type slowTasks struct{}

func (slowTasks) ListByAssignee(ctx context.Context, _ string) ([]*task.Task, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestJob_PreviewHonorsRunTimeout(t *testing.T) {
	phone := "+15550001"
	employees := staticEmployees{{ID: "e1", Role: user.RoleEmployee, Phone: &phone}}
	job := NewJob(
		NewScanner(employees, slowTasks{}, time.UTC, 1),
		NewDispatcher(newRecordingSender(), 1),
		WithRunTimeout(20*time.Millisecond),
	)

	done := make(chan error, 1)
	go func() {
		_, err := job.Preview(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Preview did not return after the run timeout")
	}
}
