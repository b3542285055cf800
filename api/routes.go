package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MintsEndpoint creates a confidential mint (sync or async)
	MintsEndpoint = "/mints"
	// MintEndpoint returns a mint record
	MintURLParam = "mintId"
	MintEndpoint = "/mints/{" + MintURLParam + "}"
	// AccountsEndpoint creates a token account
	AccountsEndpoint = "/accounts"
	// AccountEndpoint returns an account record
	AccountURLParam = "accountId"
	AccountEndpoint = "/accounts/{" + AccountURLParam + "}"
	// DepositsEndpoint locks backing tokens and mints
	DepositsEndpoint = "/deposits"
	// WithdrawalsEndpoint burns and releases backing tokens
	WithdrawalsEndpoint = "/withdrawals"
	// TransfersEndpoint moves balance between accounts
	TransfersEndpoint = "/transfers"
	// JobEndpoint returns the status of a computation job
	JobURLParam = "jobId"
	JobEndpoint = "/jobs/{" + JobURLParam + "}"

	// Payroll surface, on the plaintext-analog ledger
	PlainMintsEndpoint    = "/payroll/mints"
	PlainAccountsEndpoint = "/payroll/accounts"
	PlainDepositsEndpoint = "/payroll/deposits"
	OrgsEndpoint          = "/payroll/orgs"
	PayrollsEndpoint      = "/payroll/payrolls"
	PayrollURLParam       = "payrollId"
	PayrollMembersEndpoint = "/payroll/payrolls/{" + PayrollURLParam + "}/members"
	PayrollPauseEndpoint   = "/payroll/payrolls/{" + PayrollURLParam + "}/pause"
	PayrollResumeEndpoint  = "/payroll/payrolls/{" + PayrollURLParam + "}/resume"
	PayrollCloseEndpoint   = "/payroll/payrolls/{" + PayrollURLParam + "}/close"
	MemberURLParam         = "memberId"
	PayrollMemberEndpoint  = "/payroll/members/{" + MemberURLParam + "}"
	PayrollRunEndpoint     = "/payroll/members/{" + MemberURLParam + "}/run"
)
