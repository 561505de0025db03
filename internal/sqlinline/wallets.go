package sqlinline

const QEnsureWallet = `--sql 390a227d-008e-444a-a0fd-fc27bd613c93
insert into wallets(user_id, balance, offers_created_counter, created_at, updated_at)
values ($1::text, 0, 0, now(), now())
on conflict (user_id) do nothing;
`

const QSelectWallet = `--sql 8c3dd330-a34c-4c6c-8487-74aeb8242b8a
select user_id, balance, offers_created_counter
from wallets
where user_id = $1::text
limit 1;
`

const QLockWallet = `--sql be9d219a-d04d-4fbc-bd04-81915c712ade
select user_id, balance, offers_created_counter
from wallets
where user_id = $1::text
for update;
`

const QUpdateWallet = `--sql 21cc4162-87c5-4097-804f-c20aca117729
update wallets
set balance = $2::bigint,
    offers_created_counter = $3::int,
    updated_at = now()
where user_id = $1::text;
`
